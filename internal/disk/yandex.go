package disk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
)

const (
	DefaultYandexAPIURL = "https://cloud-api.yandex.net/v1/disk"
	yandexPageSize      = 200
)

// Yandex is a Backend for the Yandex Disk REST API.
type Yandex struct {
	baseURL  string
	api      *http.Client
	transfer *http.Client
}

// NewYandex authenticates API calls with an OAuth token. Upload and download
// hrefs are fetched with a plain client since they point to storage hosts.
func NewYandex(ctx context.Context, token, baseURL string) *Yandex {
	if baseURL == "" {
		baseURL = DefaultYandexAPIURL
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "OAuth"})
	return &Yandex{
		baseURL:  baseURL,
		api:      oauth2.NewClient(ctx, ts),
		transfer: &http.Client{},
	}
}

// stater lets staged uploads advertise their length instead of being
// sent chunked.
type stater interface {
	Stat() (fs.FileInfo, error)
}

type yandexError struct {
	Code        string `json:"error"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

type yandexLink struct {
	Href   string `json:"href"`
	Method string `json:"method"`
}

type yandexResource struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Embedded *struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
		Total int `json:"total"`
	} `json:"_embedded"`
}

func (y *Yandex) Ping(ctx context.Context) error {
	resp, err := y.do(ctx, http.MethodGet, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return y.fail(resp, "check token")
	}
	return nil
}

func (y *Yandex) Exists(ctx context.Context, p string) (bool, error) {
	resp, err := y.do(ctx, http.MethodGet, "/resources", url.Values{"path": {p}, "fields": {"name,type"}})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, y.fail(resp, "exists "+p)
	}
}

func (y *Yandex) Mkdir(ctx context.Context, p string) error {
	resp, err := y.do(ctx, http.MethodPut, "/resources", url.Values{"path": {p}})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusCreated {
		return nil
	}
	if resp.StatusCode == http.StatusConflict {
		var e yandexError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Code == "DiskPathPointsToExistentDirectoryError" {
			return nil
		}
		return fmt.Errorf("%w: mkdir %s: %s: %s", ErrUnavailable, p, e.Code, e.Message)
	}
	return y.fail(resp, "mkdir "+p)
}

func (y *Yandex) List(ctx context.Context, p string) ([]string, error) {
	var names []string
	for offset := 0; ; offset += yandexPageSize {
		q := url.Values{
			"path":   {p},
			"limit":  {strconv.Itoa(yandexPageSize)},
			"offset": {strconv.Itoa(offset)},
			"fields": {"name,type,_embedded.items.name,_embedded.total"},
		}
		resp, err := y.do(ctx, http.MethodGet, "/resources", q)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil, ErrNotFound
		}
		if resp.StatusCode != http.StatusOK {
			err := y.fail(resp, "list "+p)
			resp.Body.Close()
			return nil, err
		}
		var res yandexResource
		err = json.NewDecoder(resp.Body).Decode(&res)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: decode listing of %s: %v", ErrUnavailable, p, err)
		}
		if res.Embedded == nil {
			return names, nil
		}
		for _, it := range res.Embedded.Items {
			names = append(names, it.Name)
		}
		if len(res.Embedded.Items) == 0 || offset+len(res.Embedded.Items) >= res.Embedded.Total {
			return names, nil
		}
	}
}

func (y *Yandex) Download(ctx context.Context, p string, w io.Writer) error {
	link, err := y.link(ctx, "/resources/download", url.Values{"path": {p}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.Href, nil)
	if err != nil {
		return fmt.Errorf("%w: build download request: %v", ErrUnavailable, err)
	}
	resp, err := y.transfer.Do(req)
	if err != nil {
		return fmt.Errorf("%w: download %s: %v", ErrUnavailable, p, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return y.fail(resp, "download "+p)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("%w: download %s: %v", ErrUnavailable, p, err)
	}
	return nil
}

func (y *Yandex) Upload(ctx context.Context, p string, r io.Reader, overwrite bool) error {
	q := url.Values{"path": {p}, "overwrite": {strconv.FormatBool(overwrite)}}
	link, err := y.link(ctx, "/resources/upload", q)
	if err != nil {
		return err
	}
	method := link.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := http.NewRequestWithContext(ctx, method, link.Href, r)
	if err != nil {
		return fmt.Errorf("%w: build upload request: %v", ErrUnavailable, err)
	}
	if st, ok := r.(stater); ok {
		if info, err := st.Stat(); err == nil {
			req.ContentLength = info.Size()
		}
	}
	resp, err := y.transfer.Do(req)
	if err != nil {
		return fmt.Errorf("%w: upload %s: %v", ErrUnavailable, p, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return y.fail(resp, "upload "+p)
	}
	return nil
}

func (y *Yandex) link(ctx context.Context, endpoint string, q url.Values) (yandexLink, error) {
	resp, err := y.do(ctx, http.MethodGet, endpoint, q)
	if err != nil {
		return yandexLink{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return yandexLink{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return yandexLink{}, y.fail(resp, endpoint+" "+q.Get("path"))
	}
	var link yandexLink
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return yandexLink{}, fmt.Errorf("%w: decode link: %v", ErrUnavailable, err)
	}
	if link.Href == "" {
		return yandexLink{}, fmt.Errorf("%w: empty href for %s", ErrUnavailable, q.Get("path"))
	}
	return link, nil
}

func (y *Yandex) do(ctx context.Context, method, endpoint string, q url.Values) (*http.Response, error) {
	u := y.baseURL + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := y.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, endpoint, err)
	}
	return resp, nil
}

func (y *Yandex) fail(resp *http.Response, op string) error {
	var e yandexError
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(body, &e) == nil && e.Code != "" {
		return fmt.Errorf("%w: %s: status %d: %s: %s", ErrUnavailable, op, resp.StatusCode, e.Code, e.Message)
	}
	return fmt.Errorf("%w: %s: status %d", ErrUnavailable, op, resp.StatusCode)
}
