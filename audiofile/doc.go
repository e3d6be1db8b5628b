// Package audiofile reads and writes fragments as audio files. It supports
// the standard WAV container and the engine's native SAF container, and
// resolves the format from an explicit option or the file-name extension.
package audiofile
