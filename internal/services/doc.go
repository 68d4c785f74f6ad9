// Package services defines the [Engine] boundary between job orchestration and the program that actually fetches media.
//
// # Engine Interface
//
// An [Engine] runs one [DownloadRequest] to completion and reports [Progress] through a [ProgressHook].
// The hook runs on the engine's goroutine, so a hook that blocks holds the download in place and a hook that
// returns an error aborts it. Job pause and cancel are built on exactly those two behaviours.
//
// # yt-dlp Implementation
//
// [YTDLPService] drives the yt-dlp binary as a subprocess. It asks yt-dlp for one JSON progress line per report
// (--newline with a custom --progress-template), parses each line with [ParseProgressLine] and hands it to the
// hook synchronously from the stdout reader. Remaining output is logged at debug level and the tail of stderr
// is attached to the error when the process fails.
//
// [DependencyStatus] reports whether yt-dlp and ffmpeg can be found on PATH.
package services
