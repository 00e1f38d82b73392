// Command subclip is the CLI companion to subclipd. It talks to the
// daemon's HTTP API to upload videos, drive subtitle preparation, and cut
// keyword clips.
package main
