// Package sources provides pure waveform-generation functions. Each source
// fills every channel of a pre-sized fragment identically from a frequency
// curve and an amplitude curve in dB, both evaluated once per sample, so a
// fixed value and a time-varying curve with the same values produce
// identical output.
package sources
