package main

import (
	"context"
	"flag"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"bookhub/internal/grpcserver"
)

func handleGRPC(ctx context.Context, api *apiClient, sub string, args []string) {
	fs := flag.NewFlagSet("grpc "+sub, flag.ExitOnError)
	addr := fs.String("addr", defaultGRPCAddr, "gRPC server address")
	id := fs.String("id", "", "book or review id")
	_ = fs.Parse(args)
	if *id == "" && sub != "favorites" {
		log.Fatal("id is required")
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("grpc dial: %v", err)
	}
	defer conn.Close()

	client := grpcserver.NewClient(conn)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch sub {
	case "book":
		resp, err := client.GetBook(ctx, &grpcserver.GetBookRequest{ID: *id})
		if err != nil {
			log.Fatalf("get book: %v", err)
		}
		printJSON(resp)
	case "favorites":
		ctx := grpcserver.WithToken(ctx, mustToken(api.tokenPath))
		resp, err := client.ListFavorites(ctx, &grpcserver.ListFavoritesRequest{})
		if err != nil {
			log.Fatalf("list favorites: %v", err)
		}
		printJSON(resp)
	case "score":
		resp, err := client.GetReviewScore(ctx, &grpcserver.GetReviewScoreRequest{ReviewID: *id})
		if err != nil {
			log.Fatalf("get score: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub grpc <book|score> -id <id> | bookhub grpc favorites")
	}
}
