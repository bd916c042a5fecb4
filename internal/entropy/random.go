// Package entropy provides the random sources behind spawn rarity and
// noise-driven removal. A random.org pool can back the draws; crypto/rand
// covers any gap so a draw never waits on the network.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	mathrand "math/rand"
	"net/http"
	"sync"
	"time"
)

// Source is a uniform random source.
type Source interface {
	Float64() float64 // [0, 1)
	Intn(n int) int   // [0, n)
}

// DefaultEndpoint is the random.org JSON-RPC endpoint.
const DefaultEndpoint = "https://api.random.org/json-rpc/4/invoke"

const (
	poolLowWater = 10
	refillSize   = 100
)

// Client provides true random numbers from random.org with a local pool.
// Refills run in the background; while the pool is empty draws come from
// crypto/rand.
type Client struct {
	apiKey   string
	Endpoint string
	client   *http.Client

	mu        sync.Mutex
	pool      []float64
	refilling bool
	wg        sync.WaitGroup
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		Endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Float64 returns a random float64 in [0, 1) from the pool, scheduling a
// refill when the pool runs low.
func (c *Client) Float64() float64 {
	if c == nil {
		return cryptoRandFloat()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < poolLowWater && !c.refilling {
		c.refilling = true
		c.wg.Add(1)
		go c.refill()
	}

	if len(c.pool) == 0 {
		return cryptoRandFloat()
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	return val
}

// Intn returns a random int in [0, n). It panics if n <= 0.
func (c *Client) Intn(n int) int {
	if n <= 0 {
		panic("entropy: invalid argument to Intn")
	}
	i := int(c.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Pooled returns the number of buffered values.
func (c *Client) Pooled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pool)
}

// Wait blocks until any in-flight refill finishes.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) refill() {
	defer c.wg.Done()
	data := c.fetch()

	c.mu.Lock()
	c.pool = append(c.pool, data...)
	c.refilling = false
	c.mu.Unlock()
}

func (c *Client) fetch() []float64 {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             refillSize,
			"decimalPlaces": 6,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return nil
	}

	resp, err := c.client.Post(c.Endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return nil
	}

	var result struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return nil
	}

	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return nil
	}

	data := make([]float64, 0, len(result.Result.Random.Data))
	for _, v := range result.Result.Random.Data {
		if v >= 0 && v < 1 {
			data = append(data, v)
		}
	}
	slog.Debug("random.org pool refilled", "count", len(data))
	return data
}

// cryptoRandFloat generates a random float64 using crypto/rand as fallback.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Crypto is a Source backed by crypto/rand.
type Crypto struct{}

func (Crypto) Float64() float64 { return cryptoRandFloat() }

func (Crypto) Intn(n int) int {
	if n <= 0 {
		panic("entropy: invalid argument to Intn")
	}
	i := int(cryptoRandFloat() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// NewSeeded returns a deterministic Source. Used for replayable sessions
// and tests.
func NewSeeded(seed int64) *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(seed))
}

// Select picks the best available Source: the random.org client when an
// API key is configured, otherwise a seeded source when seed is non-zero,
// otherwise crypto/rand.
func Select(c *Client, seed int64) Source {
	switch {
	case c != nil:
		return c
	case seed != 0:
		return NewSeeded(seed)
	default:
		return Crypto{}
	}
}
