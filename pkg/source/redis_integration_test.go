//go:build integration

package source

import (
	"context"
	"strconv"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_RedisList_FetchPage(t *testing.T) {
	rdb, cleanup := setupRedisContainer(t)
	defer cleanup()

	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		if err := rdb.RPush(ctx, "items", strconv.Itoa(i)).Err(); err != nil {
			t.Fatalf("RPUSH failed: %v", err)
		}
	}

	src, err := NewRedisList(RedisConfig[int]{Redis: rdb, Key: "items"})
	if err != nil {
		t.Fatalf("NewRedisList() failed: %v", err)
	}

	tests := []struct {
		name      string
		pageIndex int
		want      []int
	}{
		{name: "first page", pageIndex: 0, want: []int{1, 2, 3}},
		{name: "middle page", pageIndex: 1, want: []int{4, 5, 6}},
		{name: "short tail", pageIndex: 2, want: []int{7, 8}},
		{name: "past the end", pageIndex: 3, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.FetchPage(ctx, tt.pageIndex, 3)
			if err != nil {
				t.Fatalf("FetchPage() failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("FetchPage() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("FetchPage()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIntegration_RedisList_StructItems(t *testing.T) {
	rdb, cleanup := setupRedisContainer(t)
	defer cleanup()

	ctx := context.Background()

	type entry struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	if err := rdb.RPush(ctx, "entries",
		`{"id":1,"name":"alpha"}`,
		`{"id":2,"name":"beta"}`,
	).Err(); err != nil {
		t.Fatalf("RPUSH failed: %v", err)
	}

	src, err := NewRedisList(RedisConfig[entry]{Redis: rdb, Key: "entries"})
	if err != nil {
		t.Fatalf("NewRedisList() failed: %v", err)
	}

	items, err := src.FetchPage(ctx, 0, 10)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("FetchPage() returned %d items, want 2", len(items))
	}
	if items[0].Name != "alpha" || items[1].Name != "beta" {
		t.Errorf("Items = %+v", items)
	}
}

func TestIntegration_RedisList_DecodeError(t *testing.T) {
	rdb, cleanup := setupRedisContainer(t)
	defer cleanup()

	ctx := context.Background()

	if err := rdb.RPush(ctx, "broken", "1", "not json", "3").Err(); err != nil {
		t.Fatalf("RPUSH failed: %v", err)
	}

	src, err := NewRedisList(RedisConfig[int]{Redis: rdb, Key: "broken"})
	if err != nil {
		t.Fatalf("NewRedisList() failed: %v", err)
	}

	if _, err := src.FetchPage(ctx, 0, 10); err == nil {
		t.Error("Expected decode error for malformed element")
	}
}
