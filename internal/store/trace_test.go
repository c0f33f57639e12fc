package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs", "run-1")

	writer, err := NewTraceWriter(dir, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Evaluation: 1, Cost: 1.0, Timestamp: time.Now()},
		{Evaluation: 2, Cost: 0.8, Timestamp: time.Now()},
		{Evaluation: 3, Cost: 0.9, Timestamp: time.Now()},
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	if writer.Path() != filepath.Join(dir, TraceFile) {
		t.Errorf("Unexpected trace path %s", writer.Path())
	}

	reader, err := NewTraceReader(dir)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	read, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(read) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(read))
	}
	for i := range entries {
		if read[i].Evaluation != entries[i].Evaluation || read[i].Cost != entries[i].Cost {
			t.Errorf("Entry %d mismatch: got %+v, want %+v", i, read[i], entries[i])
		}
	}
}

func TestTraceWriter_Append(t *testing.T) {
	dir := t.TempDir()

	w1, err := NewTraceWriter(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	w1.Write(TraceEntry{Evaluation: 1, Cost: 1.0, Timestamp: time.Now()})
	w1.Close()

	w2, err := NewTraceWriter(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	w2.Write(TraceEntry{Evaluation: 2, Cost: 0.5, Timestamp: time.Now()})
	w2.Close()

	reader, err := NewTraceReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	read, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 2 {
		t.Fatalf("Expected 2 entries after append, got %d", len(read))
	}

	// truncate mode starts over
	w3, err := NewTraceWriter(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	w3.Close()
	info, err := os.Stat(filepath.Join(dir, TraceFile))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty trace after truncate, got %d bytes", info.Size())
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewTraceWriter(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()

	writer.Write(TraceEntry{Evaluation: 1, Cost: 0.3, Timestamp: time.Now()})
	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	reader, err := NewTraceReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	entry, err := reader.Read()
	if err != nil {
		t.Fatalf("Expected flushed entry, got %v", err)
	}
	if entry.Evaluation != 1 {
		t.Errorf("Unexpected entry %+v", entry)
	}
	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestTraceReader_NotFound(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run-missing")

	_, err := NewTraceReader(dir)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.RunID != "run-missing" {
		t.Errorf("Expected run ID from directory, got %q", nf.RunID)
	}
}

func TestTraceReader_CorruptLine(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TraceFile), []byte("{\"evaluation\":1}\nnope\n"), 0644); err != nil {
		t.Fatal(err)
	}

	reader, err := NewTraceReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	if _, err := reader.ReadAll(); err == nil {
		t.Error("Expected error for corrupt line")
	}
}

func TestDeleteTrace(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewTraceWriter(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	writer.Close()

	if err := DeleteTrace(dir); err != nil {
		t.Fatalf("DeleteTrace failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, TraceFile)); !os.IsNotExist(err) {
		t.Error("Trace file still exists")
	}
	// deleting again is not an error
	if err := DeleteTrace(dir); err != nil {
		t.Errorf("DeleteTrace on missing file failed: %v", err)
	}
}

func TestTraceWriter_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewTraceWriter(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	const goroutines, perGoroutine = 8, 50
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				writer.Write(TraceEntry{Evaluation: g*perGoroutine + i + 1, Cost: float64(i), Timestamp: time.Now()})
			}
		}(g)
	}
	wg.Wait()
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	reader, err := NewTraceReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	read, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Concurrent writes produced unreadable trace: %v", err)
	}
	if len(read) != goroutines*perGoroutine {
		t.Errorf("Expected %d entries, got %d", goroutines*perGoroutine, len(read))
	}
}
