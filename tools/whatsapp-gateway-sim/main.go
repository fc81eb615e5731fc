package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Local stand-in for a Z-API style WhatsApp gateway: accepts send-messages
// posts and prints them instead of delivering.
func main() {
	addr := flag.String("addr", getenv("ADDR", ":9091"), "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/instances/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/send-messages") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var payload struct {
			Phone   string `json:"phone"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		fmt.Printf("send-messages phone=%s message=%q\n", payload.Phone, payload.Message)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"sent": true})
	})

	fmt.Printf("whatsapp gateway sim listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
