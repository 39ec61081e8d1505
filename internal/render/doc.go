// Package render rasterizes a physics scene into an offscreen RGB buffer.
//
// [Open] acquires three resources in order: a graphics context (color and
// depth buffers from the configured [Backend]), a render context (geom meshes
// and the bound offscreen framebuffer) and a scene snapshot sized for
// Config.MaxGeom geoms. [Renderer.Close] releases them in reverse.
//
// The backend is an explicit configuration value. Only the "software"
// backend is available in this build; "osmesa" and "egl" are registered so
// that asking for them fails with a clear [dynamo.ContextError].
//
// # Pixel layout
//
// [Renderer.Render] writes width*height*3 bytes of packed RGB with the
// bottom row first, the same layout glReadPixels produces. Encoders that
// expect top-down rows must flip vertically.
//
// # Shading
//
// Triangles are depth tested and flat shaded with a headlight. Planes are
// drawn as a checkered floor. Options adds body frame axes and contact
// markers drawn with Bresenham lines.
package render
