package steam

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const accessDeniedTitle = "Access Denied"

var (
	keyRegExp = regexp.MustCompile(`^Key: ([0-9A-F]+)$`)
)

func (c *Client) GetWebAPIKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.communityURL+"/dev/apikey", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	key, err := parseKey(resp.Body)
	if err != nil {
		return "", err
	}

	c.apiKey = key
	return key, nil
}

func parseKey(body io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", err
	}

	denied := false
	doc.Find("h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		denied = strings.TrimSpace(s.Text()) == accessDeniedTitle
		return !denied
	})
	if denied {
		return "", ApiAccessDeniedError
	}

	var key string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := keyRegExp.FindStringSubmatch(strings.TrimSpace(s.Text())); len(m) == 2 {
			key = m[1]
			return false
		}
		return true
	})
	if key == "" {
		return "", ApiKeyNotFoundError
	}

	return key, nil
}
