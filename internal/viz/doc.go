// Package viz formats recordings for the terminal.
//
// It renders run summaries and live progress with lipgloss, trajectory
// plots with asciigraph, and Braille thumbnails of rendered frames.
package viz
