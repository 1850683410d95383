package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/UkralStul/posterr-feed-service/api"
	"github.com/UkralStul/posterr-feed-service/internal/dataloader"
	"github.com/UkralStul/posterr-feed-service/internal/domain"
	"github.com/UkralStul/posterr-feed-service/internal/feed"
	"github.com/UkralStul/posterr-feed-service/internal/storage"
	"github.com/UkralStul/posterr-feed-service/internal/storage/inmemory"
	"github.com/UkralStul/posterr-feed-service/internal/storage/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	storageType := flag.String("storage", "in-memory", "Storage type (in-memory or postgres)")
	flag.Parse()

	var store storage.Storage
	var err error

	log.Printf("Starting server with %s storage", *storageType)
	if *storageType == "postgres" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Fatal("DATABASE_URL must be set for postgres storage")
		}
		store, err = postgres.New(dsn)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
	} else {
		store = inmemory.New()
		// Заполним данными для тестов
		fillWithSeedData(store)
	}

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(func(next http.Handler) http.Handler {
		return dataloader.Middleware(store, next)
	})

	handler := &api.Handler{
		Storage:  store,
		Feed:     feed.New(store),
		Observer: api.NewPostObserver(),
	}
	router.Mount("/", handler.Routes())

	log.Printf("listening on http://localhost:%s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}

// fillWithSeedData сажает стартовых пользователей и несколько постов.
// Пользователи создаются только здесь: регистрации в рантайме нет.
func fillWithSeedData(s storage.Storage) {
	ctx := context.Background()

	john := &domain.User{Username: "johndoe", JoinedAt: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)}
	jane := &domain.User{Username: "janedoe", JoinedAt: time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC)}
	bob := &domain.User{Username: "bobsmith", JoinedAt: time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC)}

	if err := s.SeedUsers(ctx, []*domain.User{john, jane, bob}); err != nil {
		log.Fatalf("fillWithSeedData: failed to seed users: %v", err)
	}

	// Начальный граф подписок.
	for _, edge := range [][2]string{
		{john.ID, jane.ID},
		{jane.ID, john.ID},
		{jane.ID, bob.ID},
		{bob.ID, john.ID},
	} {
		if err := s.Follow(ctx, edge[0], edge[1]); err != nil {
			log.Fatalf("fillWithSeedData: failed to follow: %v", err)
		}
	}

	// 1. Обычные посты.
	first, err := s.CreatePost(ctx, storage.CreatePostArgs{
		Content:  "Hello world! This is my first post on Posterr.",
		AuthorID: john.ID,
		Type:     domain.PostTypeRegular,
	})
	if err != nil {
		log.Fatalf("fillWithSeedData: failed to create post: %v", err)
	}

	joined, err := s.CreatePost(ctx, storage.CreatePostArgs{
		Content:  "Just joined Posterr! Excited to connect with everyone.",
		AuthorID: jane.ID,
		Type:     domain.PostTypeRegular,
	})
	if err != nil {
		log.Fatalf("fillWithSeedData: failed to create post: %v", err)
	}

	// 2. Репост и цитата ссылаются на оригинал по id.
	if _, err := s.CreatePost(ctx, storage.CreatePostArgs{
		AuthorID:       john.ID,
		Type:           domain.PostTypeRepost,
		OriginalPostID: &joined.ID,
	}); err != nil {
		log.Fatalf("fillWithSeedData: failed to create repost: %v", err)
	}

	if _, err := s.CreatePost(ctx, storage.CreatePostArgs{
		Content:        "This is a great post! Welcome to Posterr!",
		AuthorID:       bob.ID,
		Type:           domain.PostTypeQuote,
		OriginalPostID: &joined.ID,
	}); err != nil {
		log.Fatalf("fillWithSeedData: failed to create quote: %v", err)
	}

	// 3. Ответ на первый пост.
	if _, err := s.CreatePost(ctx, storage.CreatePostArgs{
		Content:        "Welcome aboard!",
		AuthorID:       jane.ID,
		Type:           domain.PostTypeReply,
		OriginalPostID: &first.ID,
	}); err != nil {
		log.Fatalf("fillWithSeedData: failed to create reply: %v", err)
	}

	log.Printf("Seed data filled successfully. Users: %s, %s, %s",
		john.Username, jane.Username, bob.Username)
}
