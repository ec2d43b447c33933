package rates_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentvest/rent2own-service/internal/config"
	"github.com/rentvest/rent2own-service/internal/integrations/rates"
)

const sampleRateSheet = `<?xml version="1.0" encoding="utf-8"?>
<RateSheet>
	<PolicyRates>
		<Snapshot date="2026-08-01">
			<Rate name="REPO">6.50</Rate>
			<Rate name="SDF">6.25</Rate>
			<Rate name="MSF">6.75</Rate>
		</Snapshot>
		<Snapshot date="2026-06-06">
			<Rate name="REPO">6.75</Rate>
		</Snapshot>
	</PolicyRates>
</RateSheet>`

func newTestClient(url string) *rates.Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return rates.NewClient(&config.Config{RatesURL: url}, log)
}

func TestGetLendingRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sampleRateSheet))
	}))
	defer srv.Close()

	rate, err := newTestClient(srv.URL).GetLendingRate()
	require.NoError(t, err)

	// Latest snapshot's repo rate of 6.50 plus the 2.5 financing margin.
	assert.InDelta(t, 9.0, rate, 0.001)
}

func TestGetLendingRate_EmptySheet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<RateSheet><PolicyRates/></RateSheet>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetLendingRate()
	assert.Error(t, err)
}

func TestGetLendingRate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetLendingRate()
	assert.Error(t, err)
}
