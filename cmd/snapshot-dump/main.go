package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/phrack/ShootOFF-sub002/internal/debugview"
)

func main() {
	var (
		path      = flag.String("path", "", "Path to snapshot log file")
		limit     = flag.Int("limit", 0, "Number of records to dump (0 = all)")
		session   = flag.String("session", "", "Only dump records of this session ID")
		shotsOnly = flag.Bool("shots", false, "Only dump frames with accepted shots")
		verdict   = flag.String("verdict", "", "Only dump frames with this guard verdict")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("path is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open snapshot log: %v", err)
	}
	defer f.Close()

	rd, err := debugview.NewReader(f)
	if err != nil {
		log.Fatalf("read snapshot log: %v", err)
	}

	count := 0
	for index := 0; ; index++ {
		if *limit > 0 && count >= *limit {
			return
		}
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Fatalf("record %d: %v", index, err)
		}

		s := rec.Snapshot
		if *session != "" && s.SessionID != *session {
			continue
		}
		if *shotsOnly && len(s.Shots) == 0 {
			continue
		}
		if *verdict != "" && s.Verdict != *verdict {
			continue
		}

		pretty, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			log.Printf("record %d: JSON encode error: %v", index, err)
			continue
		}

		log.Printf("record %d recorded=%s frame=%d verdict=%s", index,
			rec.RecordedAt.Format(time.RFC3339Nano), s.Frame, s.Verdict)
		fmt.Println(string(pretty))
		count++
	}
}
