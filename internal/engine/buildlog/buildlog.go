// Package buildlog implements the append-only log of executed commands.
//
// Each run appends to the log file. Loading replays all records in series,
// newer entries for the same output winning. Once the number of redundant
// records exceeds a threshold, the file is rewritten from the in-memory map
// and atomically renamed into place.
package buildlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/shinobi/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	fileSignatureFormat = "# ninja log v%d\n"
	currentVersion      = 4

	minCompactionEntries = 100
	compactionRatio      = 3

	// Records can carry very long command lines.
	loadBufferSize = 256 << 10
)

// Entry is the last recorded execution for one output path.
type Entry struct {
	Output      string
	Command     string
	StartMs     int32
	EndMs       int32
	RestatMtime int64

	commandHash uint64
}

// CommandEquals compares command against the recorded one, using the hash as
// a fast path before the full string comparison.
func (e *Entry) CommandEquals(command string) bool {
	return e.commandHash == xxhash.Sum64String(command) && e.Command == command
}

// Log is the in-memory view of the command log plus its open file handle.
// The map is authoritative during a run; the on-disk tail is the durable
// record. All calls are made from the dispatcher goroutine.
type Log struct {
	entries           map[string]*Entry
	file              *os.File
	dryRun            bool
	needsRecompaction bool
}

// New creates an empty log. With dryRun set, OpenForWrite reports success
// without touching disk and records mutate only the in-memory map.
func New(dryRun bool) *Log {
	return &Log{
		entries: make(map[string]*Entry),
		dryRun:  dryRun,
	}
}

// NeedsRecompaction reports whether the last Load found enough redundancy,
// or an old enough version, to warrant rewriting the file.
func (l *Log) NeedsRecompaction() bool {
	return l.needsRecompaction
}

// Load streams the log at path into memory, last writer winning per output.
// A missing file is a fresh start; malformed lines are skipped so newer and
// older writers can share a log.
func (l *Log) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "failed to open build log"), "path", path)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	version := 0
	uniqueEntries := 0
	totalEntries := 0

	r := bufio.NewReaderSize(f, loadBufferSize)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			// A truncated trailing line from an interrupted writer is
			// discarded.
			break
		}
		line = strings.TrimSuffix(line, "\n")

		if version == 0 {
			version = 1
			if n, _ := fmt.Sscanf(line, "# ninja log v%d", &version); n > 0 {
				continue
			}
		}

		entry, ok := parseRecord(line, version)
		if !ok {
			continue
		}
		totalEntries++
		if _, seen := l.entries[entry.Output]; !seen {
			uniqueEntries++
		}
		l.entries[entry.Output] = entry
	}

	if version < currentVersion {
		l.needsRecompaction = true
	} else if totalEntries > minCompactionEntries &&
		totalEntries > uniqueEntries*compactionRatio {
		l.needsRecompaction = true
	}

	return nil
}

// parseRecord splits one record line. Version 4 is tab-separated with a
// restat_mtime column; earlier versions were space-separated without one.
func parseRecord(line string, version int) (*Entry, bool) {
	if version >= 4 {
		fields := strings.SplitN(line, "\t", 5)
		if len(fields) != 5 {
			return nil, false
		}
		startMs, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			return nil, false
		}
		endMs, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return nil, false
		}
		restatMtime, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, false
		}
		return newEntry(fields[3], fields[4], int32(startMs), int32(endMs), restatMtime), true
	}

	// Old format: start end output command, where only the command may
	// contain spaces.
	fields := strings.SplitN(line, " ", 4)
	if len(fields) != 4 {
		return nil, false
	}
	startMs, err := strconv.ParseInt(fields[0], 10, 32)
	if err != nil {
		return nil, false
	}
	endMs, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return nil, false
	}
	return newEntry(fields[2], fields[3], int32(startMs), int32(endMs), 0), true
}

func newEntry(output, command string, startMs, endMs int32, restatMtime int64) *Entry {
	return &Entry{
		Output:      output,
		Command:     command,
		StartMs:     startMs,
		EndMs:       endMs,
		RestatMtime: restatMtime,
		commandHash: xxhash.Sum64String(command),
	}
}

// OpenForWrite opens the log at path for appending, recompacting first if
// Load flagged it, and writes the signature when the file is empty.
func (l *Log) OpenForWrite(path string) error {
	if l.dryRun {
		return nil
	}

	if l.needsRecompaction {
		if err := l.Recompact(path); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // log path chosen by caller
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open build log for append"), "path", path)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return zerr.Wrap(err, "failed to stat build log")
	}
	if info.Size() == 0 {
		if _, err := fmt.Fprintf(f, fileSignatureFormat, currentVersion); err != nil {
			_ = f.Close()
			return zerr.Wrap(err, "failed to write build log signature")
		}
	}

	l.file = f
	return nil
}

// RecordCommand inserts or updates the entry for each output of edge and,
// when the file is open, appends one record per output.
func (l *Log) RecordCommand(edge *domain.Edge, startMs, endMs int32, restatMtime int64) error {
	command := edge.EvaluateCommand(true)
	for _, out := range edge.Outputs {
		path := out.Path.String()
		entry, ok := l.entries[path]
		if !ok {
			entry = &Entry{Output: path}
			l.entries[path] = entry
		}
		entry.Command = command
		entry.commandHash = xxhash.Sum64String(command)
		entry.StartMs = startMs
		entry.EndMs = endMs
		entry.RestatMtime = restatMtime

		if l.file != nil {
			if err := writeEntry(l.file, entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// LookupByOutput returns the recorded entry for path, or nil.
func (l *Log) LookupByOutput(path string) *Entry {
	return l.entries[path]
}

func writeEntry(w io.Writer, entry *Entry) error {
	_, err := fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n",
		entry.StartMs, entry.EndMs, entry.RestatMtime, entry.Output, entry.Command)
	if err != nil {
		return zerr.Wrap(err, "failed to append build log record")
	}
	return nil
}

// Recompact rewrites a fresh signature plus one record per in-memory entry
// to a sibling file, then renames it over path.
func (l *Log) Recompact(path string) error {
	l.Close()

	tempPath := path + ".recompact"
	f, err := os.Create(tempPath) //nolint:gosec // log path chosen by caller
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create recompaction file"), "path", tempPath)
	}

	if _, err := fmt.Fprintf(f, fileSignatureFormat, currentVersion); err != nil {
		_ = f.Close()
		return zerr.Wrap(err, "failed to write build log signature")
	}

	// Stable output order keeps recompacted logs diffable.
	outputs := make([]string, 0, len(l.entries))
	for output := range l.entries {
		outputs = append(outputs, output)
	}
	sort.Strings(outputs)

	for _, output := range outputs {
		if err := writeEntry(f, l.entries[output]); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return zerr.Wrap(err, "failed to close recompaction file")
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, "failed to unlink old build log"), "path", path)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return zerr.Wrap(err, "failed to rename recompacted build log")
	}

	l.needsRecompaction = false
	return nil
}

// Close closes the log file if open. Further records stay in memory only.
func (l *Log) Close() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
