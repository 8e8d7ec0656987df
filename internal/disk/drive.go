package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

type DriveCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Drive is a Backend for Google Drive. Paths are resolved by walking folder
// names from the drive root, so duplicate names resolve to the first match.
type Drive struct {
	srv *drive.Service
}

func NewDrive(ctx context.Context, creds DriveCredentials, opts ...option.ClientOption) (*Drive, error) {
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("google drive refresh token is required")
	}
	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveScope},
	}
	ts := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &Drive{srv: srv}, nil
}

// NewDriveWithService wraps an already configured service.
func NewDriveWithService(srv *drive.Service) *Drive {
	return &Drive{srv: srv}
}

func (d *Drive) Ping(ctx context.Context) error {
	if _, err := d.srv.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return driveErr("check token", err)
	}
	return nil
}

func (d *Drive) Exists(ctx context.Context, p string) (bool, error) {
	_, err := d.resolve(ctx, p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *Drive) Mkdir(ctx context.Context, p string) error {
	parent, name := splitParent(p)
	parentFile, err := d.resolve(ctx, parent)
	if err != nil {
		return err
	}
	existing, err := d.child(ctx, parentFile.Id, name)
	if err == nil && existing.MimeType == folderMimeType {
		return nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	folder := &drive.File{Name: name, MimeType: folderMimeType, Parents: []string{parentFile.Id}}
	if _, err := d.srv.Files.Create(folder).Fields("id").Context(ctx).Do(); err != nil {
		return driveErr("mkdir "+p, err)
	}
	return nil
}

func (d *Drive) List(ctx context.Context, p string) ([]string, error) {
	dir, err := d.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	var names []string
	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(dir.Id))
	call := d.srv.Files.List().Q(q).Fields("nextPageToken, files(name)").PageSize(1000).Context(ctx)
	err = call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			names = append(names, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, driveErr("list "+p, err)
	}
	return names, nil
}

func (d *Drive) Download(ctx context.Context, p string, w io.Writer) error {
	f, err := d.resolve(ctx, p)
	if err != nil {
		return err
	}
	resp, err := d.srv.Files.Get(f.Id).Context(ctx).Download()
	if err != nil {
		return driveErr("download "+p, err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("%w: download %s: %v", ErrUnavailable, p, err)
	}
	return nil
}

func (d *Drive) Upload(ctx context.Context, p string, r io.Reader, overwrite bool) error {
	parent, name := splitParent(p)
	dir, err := d.resolve(ctx, parent)
	if err != nil {
		return err
	}
	existing, err := d.child(ctx, dir.Id, name)
	switch {
	case err == nil && !overwrite:
		return fmt.Errorf("%w: %s already exists", ErrUnavailable, p)
	case err == nil:
		if _, err := d.srv.Files.Update(existing.Id, &drive.File{}).Media(r).Context(ctx).Do(); err != nil {
			return driveErr("upload "+p, err)
		}
		return nil
	case !errors.Is(err, ErrNotFound):
		return err
	}
	file := &drive.File{Name: name, Parents: []string{dir.Id}, MimeType: "text/plain"}
	if _, err := d.srv.Files.Create(file).Media(r).Fields("id").Context(ctx).Do(); err != nil {
		return driveErr("upload "+p, err)
	}
	return nil
}

// resolve walks p from the drive root one segment at a time.
func (d *Drive) resolve(ctx context.Context, p string) (*drive.File, error) {
	cur := &drive.File{Id: "root", MimeType: folderMimeType}
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if seg == "" {
			continue
		}
		next, err := d.child(ctx, cur.Id, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (d *Drive) child(ctx context.Context, parentID, name string) (*drive.File, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(parentID))
	res, err := d.srv.Files.List().Q(q).Fields("files(id, name, mimeType)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return nil, driveErr("lookup "+name, err)
	}
	if len(res.Files) == 0 {
		return nil, ErrNotFound
	}
	return res.Files[0], nil
}

func splitParent(p string) (string, string) {
	p = strings.TrimRight(p, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "/", p
	}
	return p[:i], p[i+1:]
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func driveErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
