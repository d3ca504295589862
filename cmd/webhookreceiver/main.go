package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
)

// Local receiver for the security webhook. Point SECURITY_WEBHOOK_URL
// at it to watch events during development.
func main() {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Only POST method is accepted", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Error reading request body", http.StatusInternalServerError)
			return
		}
		defer r.Body.Close()

		var event map[string]interface{}
		if err := json.Unmarshal(body, &event); err != nil {
			http.Error(w, "Error parsing JSON", http.StatusBadRequest)
			return
		}

		log.Printf("Received security event: %s", event["event"])
		for key, value := range event {
			if key == "event" {
				continue
			}
			log.Printf("  %s: %v", key, value)
		}

		w.WriteHeader(http.StatusOK)
	})

	log.Println("Webhook receiver listening on :9090")
	if err := http.ListenAndServe(":9090", nil); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
