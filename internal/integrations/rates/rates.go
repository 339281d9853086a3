// Package rates quotes the savings interest rate offered on savings
// accounts. The quote is derived from the central bank key rate, fetched
// over the bank's SOAP endpoint, plus a configured spread.
package rates

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/dssouza/bank-accounts/internal/config"
)

// Client fetches the central bank key rate
type Client struct {
	url    string
	spread float64
	client *http.Client
	log    *logrus.Logger
}

// Quote is the savings rate offered to customers
type Quote struct {
	KeyRate     float64 `json:"keyRate"`
	Spread      float64 `json:"spread"`
	SavingsRate float64 `json:"savingsRate"`
}

// NewClient initializes a new rates client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url:    cfg.RatesURL,
		spread: cfg.RateSpread,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildSOAPRequest creates a SOAP request for the key rate over the last 30 days
func (c *Client) buildSOAPRequest() string {
	fromDate := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	toDate := time.Now().Format("2006-01-02")
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<KeyRate xmlns="http://web.cbr.ru/">
					<fromDate>%s</fromDate>
					<ToDate>%s</ToDate>
				</KeyRate>
			</soap12:Body>
		</soap12:Envelope>`, fromDate, toDate)
}

// sendRequest posts the SOAP request and returns the raw response body
func (c *Client) sendRequest(soapRequest string) ([]byte, error) {
	req, err := http.NewRequest("POST", c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("Key rate XML response: %s", string(body))
	return body, nil
}

// parseKeyRate extracts the most recent key rate from the SOAP response
func (c *Client) parseKeyRate(rawBody []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %w", err)
	}

	krElements := doc.FindElements("//diffgram/KeyRate/KR")
	if len(krElements) == 0 {
		return 0, fmt.Errorf("no key rate data found in XML")
	}

	rateElement := krElements[0].FindElement("./Rate")
	if rateElement == nil {
		return 0, fmt.Errorf("rate element not found in XML")
	}

	var rate float64
	if _, err := fmt.Sscanf(rateElement.Text(), "%f", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse rate: %w", err)
	}

	return rate, nil
}

// GetSavingsRate retrieves the current key rate and applies the bank spread
func (c *Client) GetSavingsRate() (*Quote, error) {
	body, err := c.sendRequest(c.buildSOAPRequest())
	if err != nil {
		return nil, err
	}

	keyRate, err := c.parseKeyRate(body)
	if err != nil {
		return nil, err
	}

	quote := &Quote{
		KeyRate:     keyRate,
		Spread:      c.spread,
		SavingsRate: keyRate - c.spread,
	}
	c.log.Infof("Savings rate quoted: %.2f%% (key rate %.2f%%, spread %.2f%%)", quote.SavingsRate, keyRate, c.spread)
	return quote, nil
}
