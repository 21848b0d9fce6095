package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	os.Exit(callAdmin(http.MethodGet, *baseURL, "/admin/v1/state", 5*time.Second))
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	os.Exit(callAdmin(http.MethodPost, *baseURL, "/admin/v1/snapshot", 10*time.Second))
}

// callAdmin prints the response body and returns the process exit code.
func callAdmin(method, baseURL, path string, timeout time.Duration) int {
	body, status, err := adminRequest(method, baseURL, path, timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		return 1
	}
	fmt.Println(strings.TrimSpace(string(body)))
	if status/100 != 2 {
		return 1
	}
	return 0
}

func adminRequest(method, baseURL, path string, timeout time.Duration) ([]byte, int, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return nil, 0, err
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return b, resp.StatusCode, err
}
