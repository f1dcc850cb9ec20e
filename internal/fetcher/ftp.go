package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher. Credentials default to
// anonymous, which is what public geo-data mirrors expect.
type FTPOptions struct {
	Timeout  time.Duration
	User     string
	Password string
}

// FTPFetcher downloads dataset files over FTP. Each download uses its
// own connection; the connection lives until the returned reader is
// closed.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPFetcher{opts: opts}
}

// ftpAddr extracts the dial address (host:port, port 21 default) and
// remote path from an ftp:// URL.
func ftpAddr(rawURL string) (addr string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" {
		return "", "", eris.Errorf("ftp: no path in %s", rawURL)
	}

	addr = u.Host
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, "21")
	}

	return addr, u.Path, nil
}

// dial opens and authenticates a connection for one transfer.
func (f *FTPFetcher) dial(ctx context.Context, addr string) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: dial %s", addr)
	}
	if err := conn.Login(f.opts.User, f.opts.Password); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp: login")
	}
	return conn, nil
}

// ftpReader keeps the connection open for the lifetime of the transfer
// and releases both the data response and the connection on Close.
type ftpReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "ftp: close response")
	}
	return eris.Wrap(quitErr, "ftp: quit")
}

// Download retrieves the file at an ftp:// URL. The caller must close
// the returned ReadCloser to release the connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	addr, path, err := ftpAddr(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp download", zap.String("addr", addr), zap.String("path", path))

	conn, err := f.dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp: retrieve %s", path)
	}

	return &ftpReader{resp: resp, conn: conn}, nil
}

// DownloadToFile retrieves an ftp:// URL into a local file and returns
// the bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "ftp: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, rc)
	if err != nil {
		return n, eris.Wrap(err, "ftp: write file")
	}

	return n, nil
}
