// Command publisher submits a local media file to a running signage
// service and optionally waits for the job to settle.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type publishResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		JobID string `json:"job_id"`
	} `json:"data"`
}

type jobResponse struct {
	Code int `json:"code"`
	Data struct {
		Status string `json:"status"`
		ItemID string `json:"item_id"`
		Error  string `json:"error"`
	} `json:"data"`
}

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "service base URL")
	path := flag.String("path", "", "local source file to publish")
	mimeType := flag.String("mime", "", "MIME type, detected from the extension when empty")
	target := flag.String("target", "", "audience target")
	force := flag.Bool("force", false, "regenerate derivatives even when memoized")
	wait := flag.Bool("wait", false, "poll until the job settles")
	flag.Parse()

	if *path == "" || *target == "" {
		flag.Usage()
		os.Exit(2)
	}

	abs, err := filepath.Abs(*path)
	if err != nil {
		fatal("resolve path: %v", err)
	}
	mt := *mimeType
	if mt == "" {
		mt = mime.TypeByExtension(filepath.Ext(abs))
	}
	if mt == "" {
		fatal("could not detect MIME type for %s, pass -mime", abs)
	}

	body, _ := json.Marshal(map[string]any{
		"path":   abs,
		"mime":   mt,
		"target": *target,
		"force":  *force,
	})
	resp, err := http.Post(strings.TrimSuffix(*addr, "/")+"/internal/v1/publish", "application/json", bytes.NewReader(body))
	if err != nil {
		fatal("publish request: %v", err)
	}
	defer resp.Body.Close()

	var pr publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		fatal("decode response: %v", err)
	}
	if pr.Code != 0 {
		fatal("publish rejected: %s", pr.Message)
	}
	fmt.Printf("job accepted: %s\n", pr.Data.JobID)

	if !*wait {
		return
	}
	for {
		time.Sleep(2 * time.Second)
		status, err := pollJob(*addr, pr.Data.JobID)
		if err != nil {
			fatal("poll job: %v", err)
		}
		switch status.Data.Status {
		case "done":
			fmt.Printf("published item %s\n", status.Data.ItemID)
			return
		case "failed":
			fatal("publish failed: %s", status.Data.Error)
		default:
			fmt.Printf("status: %s\n", status.Data.Status)
		}
	}
}

func pollJob(addr, jobID string) (*jobResponse, error) {
	resp, err := http.Get(strings.TrimSuffix(addr, "/") + "/internal/v1/publish/" + jobID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var jr jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
		return nil, err
	}
	return &jr, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
