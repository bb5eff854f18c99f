// Command gifconvert converts a video to an animated GIF from the command
// line, using the same conversion pipeline as the gifmaker server.
//
// Usage:
//
//	gifconvert [flags] <video> [more videos...]
//
// Only the first video is converted. The GIF is saved in --out-dir
// (default: the current directory) under the video's name with a .gif
// extension; an existing file is kept and the new one gets a numbered
// name.
//
// Flags:
//
//	-o, --out-dir     Directory the GIF is saved to
//	    --ffmpeg      FFmpeg executable (default: ffmpeg on PATH)
//	    --workspace   Parent directory of engine workspaces
//	-q, --quiet       Do not show progress
//	-v, --verbose     Log engine activity
//
// Progress is drawn as a bar when stderr is a terminal and as plain lines
// otherwise. When the conversion runs out of memory, the FFmpeg command
// line to run it locally is printed and the exit status is 1.
package main
