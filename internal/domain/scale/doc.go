// Package scale quantizes continuous signals onto a fixed equal-tempered scale.
//
// A Scale is anchored at a base frequency and spans a whole number of octaves.
// FrequencyToStep, StepToFrequency and SensorToStep are pure and total: any
// input outside the scale is clamped to step 0 or TotalSteps instead of failing.
package scale
