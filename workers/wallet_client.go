package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"referral-reward-system/models"
	"referral-reward-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletServiceClient is the engine's door to the wallet service: it pushes
// beatcoin credits (with idempotency keys, so the wallet deduplicates
// retries) and polls balances into the local wallet_mirror table for stats
// display.
type WalletServiceClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewWalletServiceClient(db *gorm.DB) *WalletServiceClient {
	baseURL := os.Getenv("WALLET_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("WALLET_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("REFERRAL_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("REFERRAL_SERVICE_TOKEN environment variable is required for wallet calls")
	}

	return &WalletServiceClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// Credit pushes a beatcoin credit. A 409 from the wallet service means the
// idempotency key was already applied, which is success from the ledger's
// point of view.
func (c *WalletServiceClient) Credit(ctx context.Context, userID string, amount int64, idempotencyKey string) error {
	u := fmt.Sprintf("%s/api/v1/internal/wallets/%s/credit", c.BaseURL, url.PathEscape(userID))

	payload, _ := json.Marshal(map[string]interface{}{
		"amount":          amount,
		"currency":        "beatcoins",
		"idempotency_key": idempotencyKey,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create credit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("wallet service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		log.Printf("💰 Wallet credit already applied (key %s) — treating as success", idempotencyKey)
		return nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("wallet service returned %d: %s", resp.StatusCode, string(body))
	}
}

func (c *WalletServiceClient) GetChangedBalances(ctx context.Context, since time.Time) ([]models.WalletMirror, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/internal/wallets", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call wallet service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("wallet service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Wallets []models.WalletMirror `json:"wallets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode wallet service response: %w", err)
	}

	return response.Wallets, nil
}

// PollBalances trails the wallet service into the local mirror.
func PollBalances(ctx context.Context, client *WalletServiceClient, pollInterval time.Duration) {
	log.Println("Starting beatcoin balance polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Balance polling stopped.")
			return
		case <-ticker.C:
			tickStart := time.Now().UTC()

			wallets, err := client.GetChangedBalances(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling balances: %v", err)
				continue
			}

			if len(wallets) == 0 {
				continue
			}

			for i := range wallets {
				wallets[i].LastSyncedAt = tickStart
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "user_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"beatcoins",
						"last_synced_at",
						"updated_at",
					}),
				},
			).Create(&wallets).Error; err != nil {
				log.Printf("❌ Failed to upsert %d balance(s) into wallet_mirror: %v", len(wallets), err)
				// Do NOT advance lastSyncTime on failure — retry same window next tick
				continue
			}

			lastSyncTime = tickStart
			log.Printf("✅ Upserted %d balance(s) into wallet_mirror table.", len(wallets))
		}
	}
}
