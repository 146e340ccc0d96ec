package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	defaultBaseURL  = "http://localhost:8080"
	defaultGRPCAddr = "127.0.0.1:9090"
)

func main() {
	global := flag.NewFlagSet("bookhub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
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
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	api := &apiClient{
		http:      &http.Client{Timeout: 15 * time.Second},
		baseURL:   *baseURL,
		tokenPath: *tokenPath,
	}

	switch cmd {
	case "auth":
		handleAuth(ctx, api, sub, rest)
	case "search":
		handleSearch(ctx, api, args[1:])
	case "book":
		handleBook(ctx, api, sub, rest)
	case "review":
		handleReview(ctx, api, sub, rest)
	case "favorite":
		handleFavorite(ctx, api, sub, rest)
	case "grpc":
		handleGRPC(ctx, api, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, api *apiClient, sub string, args []string) {
	switch sub {
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *name == "" || *email == "" || *password == "" {
			log.Fatal("name, email, and password are required")
		}

		var resp sessionResponse
		payload := map[string]string{"name": *name, "email": *email, "password": *password}
		if err := api.do(ctx, http.MethodPost, "/api/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(api.tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("registered %s (session valid until %s)\n", resp.User.Email, resp.ExpiresAt)
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		var resp sessionResponse
		payload := map[string]string{"email": *email, "password": *password}
		if err := api.do(ctx, http.MethodPost, "/api/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(api.tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("logged in as %s\n", resp.User.Email)
	case "logout":
		token, _ := readToken(api.tokenPath)
		if err := api.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil); err != nil {
			log.Printf("server logout failed: %v", err)
		}
		if err := clearToken(api.tokenPath); err != nil {
			log.Fatalf("clear token: %v", err)
		}
		fmt.Println("logged out")
	case "me":
		var resp map[string]any
		if err := api.do(ctx, http.MethodGet, "/api/auth/me", mustToken(api.tokenPath), nil, &resp); err != nil {
			log.Fatalf("me failed: %v", err)
		}
		printJSON(resp)
	case "change-password":
		fs := flag.NewFlagSet("auth change-password", flag.ExitOnError)
		oldPassword := fs.String("old", "", "current password")
		newPassword := fs.String("new", "", "new password")
		_ = fs.Parse(args)
		if *oldPassword == "" || *newPassword == "" {
			log.Fatal("old and new passwords are required")
		}

		var resp sessionResponse
		payload := map[string]string{"oldPassword": *oldPassword, "newPassword": *newPassword}
		if err := api.do(ctx, http.MethodPost, "/api/auth/change-password", mustToken(api.tokenPath), payload, &resp); err != nil {
			log.Fatalf("change password failed: %v", err)
		}
		if err := saveToken(api.tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("password changed; other sessions were signed out")
	default:
		log.Fatal("usage: bookhub auth <register|login|logout|me|change-password>")
	}
}

func handleSearch(ctx context.Context, api *apiClient, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("q", "", "search query")
	_ = fs.Parse(args)
	if *query == "" {
		log.Fatal("usage: bookhub search -q <query>")
	}

	var resp map[string]any
	if err := api.do(ctx, http.MethodGet, "/api/search?q="+url.QueryEscape(*query), "", nil, &resp); err != nil {
		log.Fatalf("search failed: %v", err)
	}
	printJSON(resp)
}

func handleBook(ctx context.Context, api *apiClient, sub string, args []string) {
	switch sub {
	case "show":
		fs := flag.NewFlagSet("book show", flag.ExitOnError)
		id := fs.String("id", "", "catalog volume id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("book id is required")
		}

		var resp map[string]any
		if err := api.do(ctx, http.MethodGet, "/api/books/"+url.PathEscape(*id), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "recent":
		var resp []map[string]any
		if err := api.do(ctx, http.MethodGet, "/api/books", "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub book <show|recent>")
	}
}

func handleReview(ctx context.Context, api *apiClient, sub string, args []string) {
	token := mustToken(api.tokenPath)
	switch sub {
	case "create":
		fs := flag.NewFlagSet("review create", flag.ExitOnError)
		bookID := fs.String("book", "", "catalog volume id")
		title := fs.String("title", "", "book title")
		authors := fs.String("authors", "", "book authors")
		rating := fs.Int("rating", 0, "rating 1-5")
		content := fs.String("content", "", "review text")
		_ = fs.Parse(args)
		if *bookID == "" || *title == "" {
			log.Fatal("book and title are required")
		}

		payload := map[string]any{
			"googleId": *bookID,
			"title":    *title,
			"authors":  *authors,
			"rating":   *rating,
			"content":  *content,
		}
		var resp map[string]any
		if err := api.do(ctx, http.MethodPost, "/api/reviews", token, payload, &resp); err != nil {
			log.Fatalf("create failed: %v", err)
		}
		printJSON(resp)
	case "update":
		fs := flag.NewFlagSet("review update", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		rating := fs.Int("rating", 0, "rating 1-5")
		content := fs.String("content", "", "review text")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("review id is required")
		}

		var resp map[string]any
		payload := map[string]any{"rating": *rating, "content": *content}
		if err := api.do(ctx, http.MethodPatch, "/api/reviews/"+url.PathEscape(*id), token, payload, &resp); err != nil {
			log.Fatalf("update failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		fs := flag.NewFlagSet("review delete", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("review id is required")
		}
		if err := api.do(ctx, http.MethodDelete, "/api/reviews/"+url.PathEscape(*id), token, nil, nil); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Println("review deleted")
	case "mine":
		var resp []map[string]any
		if err := api.do(ctx, http.MethodGet, "/api/reviews/user", token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "vote":
		fs := flag.NewFlagSet("review vote", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		down := fs.Bool("down", false, "downvote instead of upvote")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("review id is required")
		}

		value := 1
		if *down {
			value = -1
		}
		var resp map[string]any
		path := "/api/reviews/" + url.PathEscape(*id) + "/vote"
		if err := api.do(ctx, http.MethodPost, path, token, map[string]int{"value": value}, &resp); err != nil {
			log.Fatalf("vote failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub review <create|update|delete|mine|vote>")
	}
}

func handleFavorite(ctx context.Context, api *apiClient, sub string, args []string) {
	token := mustToken(api.tokenPath)

	bookFlag := func(name string) string {
		fs := flag.NewFlagSet(name, flag.ExitOnError)
		bookID := fs.String("book", "", "catalog volume id")
		_ = fs.Parse(args)
		if *bookID == "" {
			log.Fatal("book id is required")
		}
		return *bookID
	}

	switch sub {
	case "add":
		var resp map[string]any
		payload := map[string]string{"bookId": bookFlag("favorite add")}
		if err := api.do(ctx, http.MethodPost, "/api/favorites", token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "remove":
		payload := map[string]string{"bookId": bookFlag("favorite remove")}
		if err := api.do(ctx, http.MethodDelete, "/api/favorites", token, payload, nil); err != nil {
			log.Fatalf("remove failed: %v", err)
		}
		fmt.Println("removed from favorites")
	case "check":
		var resp map[string]any
		path := "/api/favorites/" + url.PathEscape(bookFlag("favorite check"))
		if err := api.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
			log.Fatalf("check failed: %v", err)
		}
		printJSON(resp)
	case "list":
		var resp []map[string]any
		if err := api.do(ctx, http.MethodGet, "/api/favorites", token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub favorite <add|remove|check|list>")
	}
}

func printUsage() {
	fmt.Println("bookhub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth register|login|logout|me|change-password")
	fmt.Println("  search -q <query>")
	fmt.Println("  book show|recent")
	fmt.Println("  review create|update|delete|mine|vote")
	fmt.Println("  favorite add|remove|check|list")
	fmt.Println("  grpc book|favorites|score")
}
