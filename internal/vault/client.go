package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/vault/api"
)

// COIDetailsKey is the transit key used for conflict-of-interest details.
const COIDetailsKey = "coi-details"

// Client wraps HashiCorp Vault's transit engine for field-level encryption
type Client struct {
	client       *api.Client
	transitMount string
}

// Config holds Vault configuration
type Config struct {
	Address      string
	Token        string
	TransitMount string
}

// NewClient creates a new Vault client and makes sure the transit engine and
// the COI details key exist
func NewClient(cfg *Config) (*Client, error) {
	config := api.DefaultConfig()
	config.Address = cfg.Address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	vaultClient := &Client{
		client:       client,
		transitMount: cfg.TransitMount,
	}

	if err := vaultClient.initTransitEngine(); err != nil {
		return nil, fmt.Errorf("failed to initialize transit engine: %w", err)
	}
	if err := vaultClient.CreateKey(COIDetailsKey, "aes256-gcm96"); err != nil {
		return nil, err
	}

	return vaultClient, nil
}

// initTransitEngine enables the transit secrets engine if not already enabled
func (c *Client) initTransitEngine() error {
	ctx := context.Background()

	mounts, err := c.client.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mounts: %w", err)
	}

	mountPath := c.transitMount + "/"
	if _, exists := mounts[mountPath]; exists {
		return nil
	}

	err = c.client.Sys().MountWithContext(ctx, c.transitMount, &api.MountInput{
		Type:        "transit",
		Description: "Transit encryption for PeerView",
		Config: api.MountConfigInput{
			DefaultLeaseTTL: "768h",
			MaxLeaseTTL:     "8760h",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to mount transit engine: %w", err)
	}

	return nil
}

// CreateKey creates or updates a transit encryption key. Creating an existing
// key is a no-op on Vault's side.
func (c *Client) CreateKey(keyName string, keyType string) error {
	ctx := context.Background()

	path := fmt.Sprintf("%s/keys/%s", c.transitMount, keyName)

	data := map[string]interface{}{
		"type":       keyType,
		"exportable": false,
		"derived":    false,
	}

	_, err := c.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return fmt.Errorf("failed to create key %s: %w", keyName, err)
	}

	return nil
}

// Encrypt encrypts data using Vault's transit engine
func (c *Client) Encrypt(keyName string, plaintext []byte, ctx map[string]string) (string, error) {
	reqCtx := context.Background()

	path := fmt.Sprintf("%s/encrypt/%s", c.transitMount, keyName)

	data := map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(plaintext),
	}

	if len(ctx) > 0 {
		data["context"] = base64.StdEncoding.EncodeToString([]byte(encodeContext(ctx)))
	}

	secret, err := c.client.Logical().WriteWithContext(reqCtx, path, data)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return "", fmt.Errorf("invalid ciphertext response")
	}

	return ciphertext, nil
}

// Decrypt decrypts data using Vault's transit engine
func (c *Client) Decrypt(keyName string, ciphertext string, ctx map[string]string) ([]byte, error) {
	reqCtx := context.Background()

	path := fmt.Sprintf("%s/decrypt/%s", c.transitMount, keyName)

	data := map[string]interface{}{
		"ciphertext": ciphertext,
	}

	if len(ctx) > 0 {
		data["context"] = base64.StdEncoding.EncodeToString([]byte(encodeContext(ctx)))
	}

	secret, err := c.client.Logical().WriteWithContext(reqCtx, path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	encodedPlaintext, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid plaintext response")
	}

	plaintext, err := base64.StdEncoding.DecodeString(encodedPlaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plaintext: %w", err)
	}

	return plaintext, nil
}

// Health checks Vault health status
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if !health.Initialized {
		return fmt.Errorf("vault is not initialized")
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

// encodeContext converts the context map to a stable string so the derived
// AAD matches between encrypt and decrypt.
func encodeContext(ctx map[string]string) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := ""
	for _, k := range keys {
		result += fmt.Sprintf("%s=%s;", k, ctx[k])
	}
	return result
}
