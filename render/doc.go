// Package render composes vertical short-form videos with ffmpeg.
//
// Every composition is expressed as ffmpeg argument vectors executed through
// a command.Runner: per-phrase segments are encoded separately, joined with
// the concat demuxer and finally mixed with the voiceover and background
// music. Fact and quote videos are rendered in a single filter graph.
package render
