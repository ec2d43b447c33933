package rates

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/rentvest/rent2own-service/internal/config"
)

// financingMargin is the platform's spread over the published repo rate.
const financingMargin = 2.5

// Client fetches the central bank's published policy rate sheet. The
// /lending-rate endpoint exposes the derived market rate so the dashboard can
// suggest it instead of the fixed 8.5% fallback.
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a rates client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.RatesURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

func (c *Client) fetchRateSheet() ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	c.log.Debugf("Rate sheet XML response: %s", string(body))

	return body, nil
}

// parseRepoRate extracts the repo rate from the most recent snapshot in the
// rate sheet. The sheet lists snapshots newest first; each snapshot carries
// the policy rates announced on that date.
func parseRepoRate(rawBody []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %v", err)
	}

	snapshots := doc.FindElements("/RateSheet/PolicyRates/Snapshot")
	if len(snapshots) == 0 {
		return 0, fmt.Errorf("no policy rate snapshots in rate sheet")
	}

	repoElement := snapshots[0].FindElement("./Rate[@name='REPO']")
	if repoElement == nil {
		return 0, fmt.Errorf("repo rate missing from latest snapshot")
	}

	var rate float64
	if _, err := fmt.Sscanf(repoElement.Text(), "%f", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse repo rate: %v", err)
	}

	return rate, nil
}

// GetLendingRate retrieves the current repo rate and adds the platform's
// financing margin
func (c *Client) GetLendingRate() (float64, error) {
	body, err := c.fetchRateSheet()
	if err != nil {
		return 0, err
	}

	repoRate, err := parseRepoRate(body)
	if err != nil {
		return 0, err
	}

	rate := repoRate + financingMargin

	c.log.Infof("Retrieved lending rate: %.2f%% (repo %.2f%% + %.2f%% margin)", rate, repoRate, financingMargin)
	return rate, nil
}
