package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pixelrush-games/rocket-crash-server/economy"
)

// Charge asks the payment processor to charge the player. Anything other
// than a "succeeded" verdict is treated upstream as a no-op; "pending" is
// surfaced as-is so the caller can poll.
func (c *Client) Charge(amountCents int, description string) (economy.ChargeStatus, error) {
	payload := map[string]interface{}{
		"amountCents": amountCents,
		"description": description,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/payments/charge", bytes.NewReader(body))
	if err != nil {
		return economy.ChargeFailed, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader())
	resp, err := c.http.Do(req)
	if err != nil {
		return economy.ChargeFailed, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	var data struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	_ = json.Unmarshal(respBody, &data)
	if resp.StatusCode != http.StatusOK {
		return economy.ChargeFailed, fmt.Errorf("platform: %s", data.Error)
	}
	switch data.Status {
	case "succeeded":
		return economy.ChargeSucceeded, nil
	case "pending":
		return economy.ChargePending, nil
	default:
		return economy.ChargeFailed, nil
	}
}
