// Package language maps the language values found in project metadata
// sidecars (ISO 639 codes, English words) onto the lowercase labels the
// remote transcription page shows in its language prompt.
package language
