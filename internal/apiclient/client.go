// Package apiclient is the REST client the chat and trade clients use to reach the server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"petcycle/internal/domain/entity"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Error is a non-2xx response decoded from the server's error envelope.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func statusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsConflict(err error) bool  { return statusOf(err) == http.StatusConflict }
func IsForbidden(err error) bool { return statusOf(err) == http.StatusForbidden }
func IsNotFound(err error) bool  { return statusOf(err) == http.StatusNotFound }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends body as JSON and decodes the envelope's data into out. It returns the HTTP status.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return resp.StatusCode, apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

type Room struct {
	RoomID        string    `json:"room_id"`
	PeerID        string    `json:"peer_id"`
	PeerNickname  string    `json:"peer_nickname"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
}

func (c *Client) GetOrCreateRoom(ctx context.Context, peerID string) (*Room, error) {
	var room Room
	if _, err := c.do(ctx, http.MethodPost, "/api/chat/rooms", map[string]string{"peer_id": peerID}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if _, err := c.do(ctx, http.MethodGet, "/api/chat/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// History returns the newest-first page the server reports for roomID.
func (c *Client) History(ctx context.Context, roomID string, limit int) ([]entity.DirectMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/chat/rooms/" + url.PathEscape(roomID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var raw json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeHistory(raw)
}

// decodeHistory accepts data as a bare array or a paginated {items: [...]} object.
func decodeHistory(raw json.RawMessage) ([]entity.DirectMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []entity.DirectMessage{}, nil
	}

	var messages []entity.DirectMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		return messages, nil
	}

	var page struct {
		Items []entity.DirectMessage `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if page.Items == nil {
		return []entity.DirectMessage{}, nil
	}
	return page.Items, nil
}

func (c *Client) Nickname(ctx context.Context, userID string) (string, error) {
	var out struct {
		Nickname string `json:"nickname"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/chat/users/"+url.PathEscape(userID)+"/nickname", nil, &out); err != nil {
		return "", err
	}
	return out.Nickname, nil
}

func (c *Client) SendMessage(ctx context.Context, roomID, content string) (*entity.DirectMessage, error) {
	var msg entity.DirectMessage
	if _, err := c.do(ctx, http.MethodPost, "/api/chat/messages", map[string]string{"room_id": roomID, "content": content}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/chat/rooms/"+url.PathEscape(roomID), nil, nil)
	return err
}

// RegisterTransaction returns the open transaction and whether this call created it.
func (c *Client) RegisterTransaction(ctx context.Context, productID string, finalPrice int64) (*entity.Transaction, bool, error) {
	var tx entity.Transaction
	status, err := c.do(ctx, http.MethodPost, "/api/orders", map[string]interface{}{
		"product_id":  productID,
		"final_price": finalPrice,
	}, &tx)
	if err != nil {
		return nil, false, err
	}
	return &tx, status == http.StatusCreated, nil
}

func (c *Client) HasActiveTransaction(ctx context.Context, productID string) (bool, error) {
	var out struct {
		Active bool `json:"active"`
	}
	path := "/api/orders/transactions/active/me?product_id=" + url.QueryEscape(productID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Active, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	return c.product(ctx, http.MethodGet, "/api/products/"+url.PathEscape(productID), nil)
}

func (c *Client) CreateProduct(ctx context.Context, title string, price int64) (*entity.Product, error) {
	return c.product(ctx, http.MethodPost, "/api/products", map[string]interface{}{"title": title, "price": price})
}

func (c *Client) MarkSold(ctx context.Context, productID string) (*entity.Product, error) {
	return c.product(ctx, http.MethodPost, "/api/products/"+url.PathEscape(productID)+"/sell", nil)
}

func (c *Client) ConfirmPurchase(ctx context.Context, productID string) (*entity.Product, error) {
	return c.product(ctx, http.MethodPost, "/api/products/"+url.PathEscape(productID)+"/purchase/confirm", nil)
}

func (c *Client) ToggleLike(ctx context.Context, productID string) (*entity.LikeStatus, error) {
	var status entity.LikeStatus
	if _, err := c.do(ctx, http.MethodPost, "/api/products/"+url.PathEscape(productID)+"/like", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) product(ctx context.Context, method, path string, body interface{}) (*entity.Product, error) {
	var product entity.Product
	if _, err := c.do(ctx, method, path, body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Page is the paginated data object returned by list endpoints.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

type TransactionSummary struct {
	entity.Transaction
	ProductTitle string `json:"product_title"`
	Role         string `json:"role"`
}

type TransactionDetail struct {
	entity.Transaction
	Product        *entity.Product `json:"product,omitempty"`
	SellerNickname string          `json:"seller_nickname"`
	BuyerNickname  string          `json:"buyer_nickname"`
}

func pagePath(base string, page, limit int) string {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

// ListTransactions pages the caller's deals, newest first.
func (c *Client) ListTransactions(ctx context.Context, page, limit int) (*Page[TransactionSummary], error) {
	var out Page[TransactionSummary]
	if _, err := c.do(ctx, http.MethodGet, pagePath("/api/orders", page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*TransactionDetail, error) {
	var detail TransactionDetail
	if _, err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(transactionID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListPurchased pages products the caller bought, most recently sold first.
func (c *Client) ListPurchased(ctx context.Context, page, limit int) (*Page[entity.Product], error) {
	var out Page[entity.Product]
	if _, err := c.do(ctx, http.MethodGet, pagePath("/api/products/purchased", page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
