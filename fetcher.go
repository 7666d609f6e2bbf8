package cgtcalc

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/cgtcalc/date"
)

// PriceProvider returns the current market price of a security in GBP. It is
// optional: without one the report simply has no unrealized gains.
type PriceProvider interface {
	Price(symbol string) (Money, error)
}

// diskCache implements a simple disk cache for HTTP responses. Quote and
// exchange rate endpoints change at most daily; the cache key embeds today's
// date so entries expire overnight.
type diskCache struct {
	base http.RoundTripper
}

func (c *diskCache) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	key := fmt.Sprintf("%s %s %s", date.Today().String(), req.Method, req.URL.String())
	key = fmt.Sprintf("%x", sha1.Sum([]byte(key)))

	cachedResp, err := c.get(key, req)
	if err == nil { // Cache hit
		return cachedResp, nil
	}

	resp, err = c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	log.Printf("%v %v/%v %v", resp.Request.Method, resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	if resp.StatusCode >= 300 {
		return resp, nil
	}

	if err := c.put(key, resp); err != nil {
		log.Printf("cache write err (ignored): %v", err)
	}
	return resp, nil
}

// get retrieves a cached response from disk
func (c *diskCache) get(key string, req *http.Request) (resp *http.Response, err error) {
	file := filepath.Join(os.TempDir(), key)
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

// put stores a response to disk cache
func (c *diskCache) put(key string, resp *http.Response) (err error) {
	file := filepath.Join(os.TempDir(), key)

	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}

	f, err := os.Create(file)
	if err != nil {
		return err
	}

	_, err = f.Write(content)
	f.Close()
	return err
}

// DailyClient returns an HTTP client whose responses are cached on disk
// until the end of the day.
func DailyClient() *http.Client {
	client := new(http.Client)
	client.Transport = &diskCache{http.DefaultTransport}
	return client
}

// jwget performs an HTTP GET request and unmarshals the JSON response into
// the provided data structure.
func jwget(client *http.Client, addr string, data any) error {
	resp, err := client.Get(addr)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	_, err = io.Copy(&buf, resp.Body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return json.Unmarshal(buf.Bytes(), data)
}

// YahooQuotes fetches current market prices from the Yahoo Finance chart
// endpoint and converts them to GBP with the given converter. Prices quoted
// in GBp (pence, LSE listings) are scaled to pounds first.
type YahooQuotes struct {
	Client    *http.Client
	Converter *CurrencyConverter
}

// NewYahooQuotes returns a provider backed by the daily-cached HTTP client.
func NewYahooQuotes(converter *CurrencyConverter) *YahooQuotes {
	return &YahooQuotes{Client: DailyClient(), Converter: converter}
}

func (y *YahooQuotes) Price(symbol string) (Money, error) {
	addr := "https://query1.finance.yahoo.com/v8/finance/chart/" + symbol + "?interval=1d&range=1d"
	var jobj any
	if err := jwget(y.Client, addr, &jobj); err != nil {
		return Money{}, fmt.Errorf("error in wget %q: %w", symbol, err)
	}
	price, err := yahooMeta(jobj, symbol, "$.chart.result[0].meta.regularMarketPrice")
	if err != nil {
		return Money{}, err
	}
	value, ok := price.(float64)
	if !ok {
		return Money{}, fmt.Errorf("error parsing %q: price %v is not a float", symbol, price)
	}
	currency, err := yahooMeta(jobj, symbol, "$.chart.result[0].meta.currency")
	if err != nil {
		return Money{}, err
	}
	code, ok := currency.(string)
	if !ok {
		return Money{}, fmt.Errorf("error parsing %q: currency %v is not a string", symbol, currency)
	}
	if code == "GBp" {
		value, code = value/100, UKCurrency
	}
	return y.Converter.ToGBP(M(value, code), date.Today())
}

func yahooMeta(jobj any, symbol, path string) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %q %w", symbol, path, err)
	}
	// because jsonpath is never clear about whether it returns a list of 1
	// answer, or a single answer: by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	return jval, nil
}
