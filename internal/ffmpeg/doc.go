/*
Package ffmpeg implements the transcoding engine on top of a native FFmpeg
executable.

Each loaded Engine owns a private workspace directory (see package vfs)
that acts as its virtual filesystem, and holds an exclusive lock file next
to it. SweepStale uses those locks at startup to remove workspaces left
behind by processes that died without cleaning up.

Run executes FFmpeg inside the workspace. Standard output and standard
error are delivered line by line to the logger, with carriage returns
treated as line breaks so every stats update is its own line. Progress is
derived from the input Duration and the running time= stat. A clean exit
is followed by the completion sentinel on standard output, the same
contract the in-browser engine follows, so the conversion pipeline does
not need to know which engine it drives.

A process killed by a signal the engine did not send, such as the kernel
OOM killer, is reported through the crash handler.
*/
package ffmpeg
