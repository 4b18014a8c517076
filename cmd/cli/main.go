package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"bookhub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type bookResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Book    *models.Book `json:"book"`
}

type bookListResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Books   []models.Book `json:"books"`
}

type authorResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Author  *models.Author `json:"author"`
}

type authorListResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Authors []models.Author `json:"authors"`
}

type searchResponse struct {
	Success     bool            `json:"success"`
	Query       string          `json:"query"`
	Books       []models.Book   `json:"books"`
	Authors     []models.Author `json:"authors"`
	BookCount   int             `json:"book_count"`
	AuthorCount int             `json:"author_count"`
}

func main() {
	global := flag.NewFlagSet("bookhub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "books":
		handleBooks(ctx, client, *baseURL, sub, args[2:])
	case "authors":
		handleAuthors(ctx, client, *baseURL, sub, args[2:])
	case "search":
		handleSearch(ctx, client, *baseURL, args[1:])
	case "feed":
		handleFeed(*baseURL, sub, args[2:])
	case "export":
		handleExport(ctx, client, *baseURL, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleBooks(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "list":
		var resp bookListResponse
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/books", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("books show", flag.ExitOnError)
		id := fs.Int64("id", 0, "book id")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("book id is required")
		}

		var resp bookResponse
		if err := doJSON(ctx, client, http.MethodGet, bookURL(baseURL, *id), nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp.Book)
	case "create":
		fs := flag.NewFlagSet("books create", flag.ExitOnError)
		title := fs.String("title", "", "book title (required)")
		year := fs.Int("year", 0, "publication year")
		isbn := fs.String("isbn", "", "ISBN")
		authorIDs := fs.String("authors", "", "comma-separated author ids")
		_ = fs.Parse(args)
		if *title == "" {
			log.Fatal("title is required")
		}

		payload := map[string]any{"title": *title}
		setFlags(fs, func(name string) {
			switch name {
			case "year":
				payload["year"] = *year
			case "isbn":
				payload["isbn"] = *isbn
			case "authors":
				payload["author_ids"] = parseIDList(*authorIDs)
			}
		})

		var resp bookResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/books", payload, &resp); err != nil {
			log.Fatalf("create failed: %v", err)
		}
		printJSON(resp.Book)
	case "update":
		fs := flag.NewFlagSet("books update", flag.ExitOnError)
		id := fs.Int64("id", 0, "book id (required)")
		title := fs.String("title", "", "new title")
		year := fs.Int("year", 0, "new publication year")
		isbn := fs.String("isbn", "", "new ISBN")
		authorIDs := fs.String("authors", "", "comma-separated author ids (replaces all links)")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("book id is required")
		}

		// only flags actually passed go into the payload: the server
		// treats key presence as the signal to overwrite
		payload := map[string]any{}
		setFlags(fs, func(name string) {
			switch name {
			case "title":
				payload["title"] = *title
			case "year":
				payload["year"] = *year
			case "isbn":
				payload["isbn"] = *isbn
			case "authors":
				payload["author_ids"] = parseIDList(*authorIDs)
			}
		})
		if len(payload) == 0 {
			log.Fatal("nothing to update")
		}

		var resp bookResponse
		if err := doJSON(ctx, client, http.MethodPut, bookURL(baseURL, *id), payload, &resp); err != nil {
			log.Fatalf("update failed: %v", err)
		}
		printJSON(resp.Book)
	case "delete":
		fs := flag.NewFlagSet("books delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "book id")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("book id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, bookURL(baseURL, *id), nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub books <list|show|create|update|delete>")
	}
}

func handleAuthors(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "list":
		var resp authorListResponse
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/authors", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("authors show", flag.ExitOnError)
		id := fs.Int64("id", 0, "author id")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("author id is required")
		}

		var resp authorResponse
		if err := doJSON(ctx, client, http.MethodGet, authorURL(baseURL, *id), nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp.Author)
	case "create":
		fs := flag.NewFlagSet("authors create", flag.ExitOnError)
		name := fs.String("name", "", "author name (required)")
		birthYear := fs.Int("birth-year", 0, "birth year")
		country := fs.String("country", "", "country")
		_ = fs.Parse(args)
		if *name == "" {
			log.Fatal("name is required")
		}

		payload := map[string]any{"name": *name}
		setFlags(fs, func(flagName string) {
			switch flagName {
			case "birth-year":
				payload["birth_year"] = *birthYear
			case "country":
				payload["country"] = *country
			}
		})

		var resp authorResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/authors", payload, &resp); err != nil {
			log.Fatalf("create failed: %v", err)
		}
		printJSON(resp.Author)
	case "update":
		fs := flag.NewFlagSet("authors update", flag.ExitOnError)
		id := fs.Int64("id", 0, "author id (required)")
		name := fs.String("name", "", "new name")
		birthYear := fs.Int("birth-year", 0, "new birth year")
		country := fs.String("country", "", "new country")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("author id is required")
		}

		payload := map[string]any{}
		setFlags(fs, func(flagName string) {
			switch flagName {
			case "name":
				payload["name"] = *name
			case "birth-year":
				payload["birth_year"] = *birthYear
			case "country":
				payload["country"] = *country
			}
		})
		if len(payload) == 0 {
			log.Fatal("nothing to update")
		}

		var resp authorResponse
		if err := doJSON(ctx, client, http.MethodPut, authorURL(baseURL, *id), payload, &resp); err != nil {
			log.Fatalf("update failed: %v", err)
		}
		printJSON(resp.Author)
	case "delete":
		fs := flag.NewFlagSet("authors delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "author id")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("author id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, authorURL(baseURL, *id), nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub authors <list|show|create|update|delete>")
	}
}

func handleSearch(ctx context.Context, client *http.Client, baseURL string, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("q", "", "search query")
	_ = fs.Parse(args)
	if strings.TrimSpace(*query) == "" {
		log.Fatal("search query is required")
	}

	u, err := url.Parse(baseURL + "/api/search")
	if err != nil {
		log.Fatalf("invalid base url: %v", err)
	}
	qv := u.Query()
	qv.Set("q", *query)
	u.RawQuery = qv.Encode()

	var resp searchResponse
	if err := doJSON(ctx, client, http.MethodGet, u.String(), nil, &resp); err != nil {
		log.Fatalf("search failed: %v", err)
	}
	printJSON(resp)
}

func handleFeed(baseURL, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("feed listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP feed server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runFeedTCP(*addr, *pretty); err != nil {
				log.Printf("[feed] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "subscribe":
		fs := flag.NewFlagSet("feed subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: bookhub feed <listen|subscribe>")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/catalog.json", "output JSON path")
		_ = fs.Parse(args)

		items, err := fetchBooks(ctx, client, baseURL)
		if err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		if err := writeJSON(*out, items); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("exported %d books to %s", len(items), *out)
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "data/books.csv", "output CSV path")
		_ = fs.Parse(args)

		items, err := fetchBooks(ctx, client, baseURL)
		if err != nil {
			log.Fatalf("export csv failed: %v", err)
		}
		if err := writeCSV(*out, items); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("exported %d books to %s", len(items), *out)
	default:
		log.Fatal("usage: bookhub export <json|csv>")
	}
}

func runFeedTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[feed] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[feed] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func fetchBooks(ctx context.Context, client *http.Client, baseURL string) ([]models.Book, error) {
	var resp bookListResponse
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/books", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Books, nil
}

func writeJSON(path string, items []models.Book) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Book) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"id", "title", "year", "isbn", "authors"}); err != nil {
		return err
	}
	for _, item := range items {
		year := ""
		if item.Year != nil {
			year = strconv.Itoa(*item.Year)
		}
		isbn := ""
		if item.ISBN != nil {
			isbn = *item.ISBN
		}
		names := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			names = append(names, a.Name)
		}
		if err := writer.Write([]string{
			strconv.FormatInt(item.ID, 10),
			item.Title,
			year,
			isbn,
			strings.Join(names, ";"),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

// setFlags calls fn for every flag the user actually passed.
func setFlags(fs *flag.FlagSet, fn func(name string)) {
	fs.Visit(func(f *flag.Flag) {
		fn(f.Name)
	})
}

func parseIDList(s string) []int64 {
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func bookURL(baseURL string, id int64) string {
	return baseURL + "/api/books/" + strconv.FormatInt(id, 10)
}

func authorURL(baseURL string, id int64) string {
	return baseURL + "/api/authors/" + strconv.FormatInt(id, 10)
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("bookhub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  books list|show|create|update|delete")
	fmt.Println("  authors list|show|create|update|delete")
	fmt.Println("  search -q <query>")
	fmt.Println("  feed listen|subscribe")
	fmt.Println("  export json|csv")
}
