// Package archive is an example host integration, not part of the
// core recording engine: it accumulates a finished recording's event
// stream and uploads the packed bytes to S3, the way a hosting
// application's own upload pipeline would consume pkg/record's
// output. Nothing in pkg/record or pkg/transport depends on it.
package archive
