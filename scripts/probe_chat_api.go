package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-resty/resty/v2"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	info    = color.New(color.FgCyan).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
)

type probe struct {
	name       string
	method     string
	path       string
	body       interface{}
	wantStatus []int
}

// Pretty print JSON helper
func prettyPrint(raw []byte) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "base URL of the running server")
	burst := flag.Int("burst", 0, "extra POST /chat requests to fire to observe throttling")
	flag.Parse()

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json")

	transport := map[string]interface{}{
		"name":        "Transport",
		"description": "Roads, vehicles and licensing",
		"link":        "/departments/transport",
		"services":    []string{"Driver license renewal", "Vehicle registration"},
		"keywords":    []string{"license", "car"},
		"contact":     "555-0101",
	}

	probes := []probe{
		{name: "Health", method: "GET", path: "/health", wantStatus: []int{200}},
		{name: "Status", method: "GET", path: "/status", wantStatus: []int{200}},
		{
			name:   "Chat (relevant department)",
			method: "POST",
			path:   "/chat",
			body: map[string]interface{}{
				"message":           "How do I renew my license?",
				"departmentContext": []interface{}{transport},
			},
			wantStatus: []int{200, 429, 503},
		},
		{
			name:       "Chat (too long)",
			method:     "POST",
			path:       "/chat",
			body:       map[string]interface{}{"message": strings.Repeat("a", 1001)},
			wantStatus: []int{400},
		},
		{
			name:       "Chat (wrong history type)",
			method:     "POST",
			path:       "/chat",
			body:       map[string]interface{}{"message": "hi", "history": "yesterday"},
			wantStatus: []int{400},
		},
	}

	failed := 0
	for _, p := range probes {
		if !run(client, p) {
			failed++
		}
	}

	for i := 0; i < *burst; i++ {
		resp, err := client.R().SetBody(map[string]interface{}{"message": "burst"}).Post("/chat")
		if err != nil {
			fmt.Printf("%s burst %d: %v\n", failure("✗"), i+1, err)
			continue
		}
		fmt.Printf("%s burst %d: %d retry-after=%q\n", info("→"), i+1, resp.StatusCode(), resp.Header().Get("Retry-After"))
	}

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%s %d probe(s) failed\n", failure("✗"), failed)
		os.Exit(1)
	}
	fmt.Println(success("✓ all probes passed"))
}

func run(client *resty.Client, p probe) bool {
	fmt.Printf("\n%s %s %s\n", info("▶"), p.name, warn(p.method+" "+p.path))

	req := client.R()
	if p.body != nil {
		req.SetBody(p.body)
	}

	resp, err := req.Execute(p.method, p.path)
	if err != nil {
		fmt.Printf("%s request failed: %v\n", failure("✗"), err)
		return false
	}

	prettyPrint(resp.Body())

	for _, want := range p.wantStatus {
		if resp.StatusCode() == want {
			fmt.Printf("%s status %d\n", success("✓"), resp.StatusCode())
			return true
		}
	}
	fmt.Printf("%s status %d, want one of %v\n", failure("✗"), resp.StatusCode(), p.wantStatus)
	return false
}
