// Command chat is a terminal client for the registrar's advising chat.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:3210", "Registrar server URL")
	student := flag.String("student", "", "Student id for recommendations and eligibility")
	name := flag.String("name", "cli-user", "Display name")
	flag.Parse()

	fmt.Println("Registrar CLI Chat")
	fmt.Printf("Server: %s | Student: %s\n", *server, orDash(*student))
	fmt.Println("Type 'exit' or 'quit' to leave.")
	fmt.Println("Commands: /recommend, /eligible, /faq <question>, /help, /courses")
	fmt.Println("---")

	checkHealth(*server)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}
		if input == "/courses" {
			fetchCourses(*server)
			continue
		}

		sendMessage(*server, *student, *name, input)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func checkHealth(server string) {
	resp, err := http.Get(server + "/api/health")
	if err != nil {
		printError("Server unreachable: %v", err)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Status  string `json:"status"`
		Courses int    `json:"courses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		printError("Failed to parse health: %v", err)
		return
	}
	fmt.Printf("Connected. Catalog has %d courses.\n", body.Courses)
}

func fetchCourses(server string) {
	resp, err := http.Get(server + "/api/courses")
	if err != nil {
		printError("Failed to fetch courses: %v", err)
		return
	}
	defer resp.Body.Close()

	var courses []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Credits int    `json:"credits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&courses); err != nil {
		printError("Failed to parse courses: %v", err)
		return
	}
	if len(courses) == 0 {
		fmt.Println("Catalog is empty.")
		return
	}
	fmt.Println("Catalog:")
	for _, c := range courses {
		fmt.Printf("  %s — %s (%d cr)\n", c.ID, c.Title, c.Credits)
	}
}

func sendMessage(server, student, name, content string) {
	body, _ := json.Marshal(map[string]string{
		"studentId": student,
		"userName":  name,
		"message":   content,
	})

	client := &http.Client{Timeout: 65 * time.Second}
	resp, err := client.Post(server+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}

	var msg struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		printError("Failed to parse response: %v", err)
		return
	}
	fmt.Println(msg.Reply)
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
