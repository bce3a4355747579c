package main

import (
	"fmt"
	"log"
	"net/http"
)

// Fake upstream provider for local runs: point base_url at :3001 and every
// generation succeeds with a placeholder image.
func main() {
	http.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [{"url": "https://placehold.co/1024x1024.png"}]}`)
	})

	http.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices": [{"message": {"content": "Here is your image: ![image](https://placehold.co/1024x1024.png)"}}]}`)
	})

	http.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [{"id": "dummy-image-model"}]}`)
	})

	log.Println("Dummy provider starting on :3001")
	if err := http.ListenAndServe(":3001", nil); err != nil {
		log.Fatal(err)
	}
}
