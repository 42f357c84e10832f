package market

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// GeckoTerminal v2 JSON:API response shapes (subset).

type resourceID struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type relationship struct {
	Data *resourceID `json:"data"`
}

type poolResource struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes poolAttributes `json:"attributes"`
	Relations  struct {
		BaseToken  relationship `json:"base_token"`
		QuoteToken relationship `json:"quote_token"`
		Dex        relationship `json:"dex"`
	} `json:"relationships"`
}

type poolAttributes struct {
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	ReserveInUSD flexFloat `json:"reserve_in_usd"`
	VolumeUSD    struct {
		H24 flexFloat `json:"h24"`
	} `json:"volume_usd"`
}

type tokenResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"attributes"`
}

type poolsResponse struct {
	Data     []poolResource  `json:"data"`
	Included []tokenResource `json:"included"`
}

type ohlcvResponse struct {
	Data struct {
		Attributes struct {
			OHLCVList [][]json.Number `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
}

// flexFloat decodes a number that may arrive as a JSON number, a numeric string, or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Unparseable values are treated as unknown.
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
