package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"wachtrij/internal/settings"
)

const defaultBaseURL = "http://127.0.0.1:8787"

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", defaultBaseURL, "server base url")
	_ = fs.Parse(args)

	os.Exit(call(http.MethodGet, *baseURL, "/healthz", nil))
}

func resetCmd(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	baseURL := fs.String("url", defaultBaseURL, "server base url")
	_ = fs.Parse(args)

	os.Exit(call(http.MethodDelete, *baseURL, "/v1/orders", nil))
}

// settingsCmd prints the display settings, or updates them when any flag besides -url is set.
func settingsCmd(args []string) {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	baseURL := fs.String("url", defaultBaseURL, "server base url")
	bgType := fs.String("type", "", "background type: none|builtin|url")
	bgValue := fs.String("value", "", "builtin name or image url")
	opacity := fs.Float64("opacity", -1, "veil opacity in [0,1]")
	size := fs.String("size", "", "background size: cover|contain|stretch|tile")
	_ = fs.Parse(args)

	if *bgType == "" && *bgValue == "" && *opacity < 0 && *size == "" {
		os.Exit(call(http.MethodGet, *baseURL, "/v1/settings", nil))
	}

	cur := settings.Defaults()
	if err := getJSON(*baseURL, "/v1/settings", &cur); err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	if *bgType != "" {
		cur.BackgroundType = *bgType
	}
	if *bgValue != "" {
		cur.BackgroundValue = *bgValue
	}
	if *opacity >= 0 {
		cur.Opacity = *opacity
	}
	if *size != "" {
		cur.Size = *size
	}
	body, _ := json.Marshal(cur)
	os.Exit(call(http.MethodPut, *baseURL, "/v1/settings", body))
}

func call(method, baseURL, path string, body []byte) int {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		return 2
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		return 1
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if len(b) > 0 {
		fmt.Println(strings.TrimSpace(string(b)))
	} else {
		fmt.Println(resp.Status)
	}
	if resp.StatusCode/100 != 2 {
		return 1
	}
	return 0
}

func getJSON(baseURL, path string, v any) error {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
