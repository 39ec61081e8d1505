// Package analysis characterizes recorded trajectories.
//
// [Dominant] finds the strongest oscillation frequency of a sampled
// signal, which for a driven scene should track the drive period.
// [Portrait] plots one recorded coordinate against another.
package analysis
