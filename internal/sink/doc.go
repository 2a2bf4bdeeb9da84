// Package sink delivers lineage records outside the process.
//
// The external backend hands each registered record to a Queue, which
// converts it to an Event on a worker goroutine and writes it to a Sink.
// Queues never block the audited code path: when full they drop and count.
//
// Sinks:
//   - LogSink: one zap debug entry per record
//   - JSONLSink: append-only newline-delimited JSON file
//   - KafkaSink: one message per record, keyed by process and id
//   - SQLiteSink: table keyed by (process, id)
//
// JSONL files and SQLite databases can be read back (ReadJSONL,
// SQLiteSink.Records) to rebuild lineage after the producing process exits.
package sink
