package preview

import (
	"context"
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/origolabs/origo/internal/errors"
	"github.com/origolabs/origo/internal/logging"
	"github.com/origolabs/origo/internal/validation"
)

var (
	scriptSrcPattern = regexp.MustCompile(`(?i)<script[^>]+src="([^"]+)"[^>]*></script>`)
	linkHrefPattern  = regexp.MustCompile(`(?i)<link[^>]+href="([^"]+)"[^>]*>`)
	imgSrcPattern    = regexp.MustCompile(`(?i)<img[^>]+src="([^"]+)"[^>]*>`)
)

// rewriter inlines the assets referenced by one entry document. References
// resolve against the entry's directory and must stay inside root.
type rewriter struct {
	root    string
	dir     string
	bundler Bundler
	logger  logging.Logger
}

func (rw *rewriter) resolve(ref string) (string, error) {
	target, err := validation.ResolveWithin(rw.root, rw.dir, ref)
	if err != nil {
		return "", errors.NewPreviewInputInvalid("path-traversal").WithDetail("ref", ref).WithCause(err)
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return "", errors.NewPreviewInputInvalid("missing-asset").WithDetail("ref", ref)
	}

	return target, nil
}

func (rw *rewriter) rewrite(ctx context.Context, html string) (string, error) {
	html, err := rw.bundleScripts(ctx, html)
	if err != nil {
		return "", err
	}
	html = rw.inlineStyles(html)
	html = rw.inlineImages(html)

	return html, nil
}

type bundledScript struct {
	src  string
	code string
}

// bundleScripts bundles every external script first, then splices each bundle
// in front of the first remaining closing script tag.
func (rw *rewriter) bundleScripts(ctx context.Context, html string) (string, error) {
	var scripts []bundledScript
	for _, m := range scriptSrcPattern.FindAllStringSubmatch(html, -1) {
		src := m[1]
		entry, err := rw.resolve(src)
		if err != nil {
			rw.logger.Error(ctx, err, "preview script rejected", "ref", src, "phase", "preview")
			return "", err
		}

		rw.logger.Debug(ctx, "preview.bundle.start", "entry", entry)
		code, err := rw.bundler.Bundle(ctx, entry)
		if err != nil {
			rw.logger.Error(ctx, err, "preview bundle failed",
				"ref", src, "phase", "preview", "log", logging.Truncate(bundleLog(err), 2048))
			if errors.IsPreviewError(err) {
				return "", err
			}
			return "", errors.NewPreviewTransformFailed("transform-failed").
				WithDetail("log", err.Error()).WithCause(err)
		}
		rw.logger.Info(ctx, "preview.bundle.ok", "ref", src, "bytes", len(code))
		scripts = append(scripts, bundledScript{src: src, code: code})
	}

	for _, s := range scripts {
		html = strings.ReplaceAll(html, `src="`+s.src+`"`, "")
		html = strings.Replace(html, "</script>", s.code+"</script>", 1)
	}

	return html, nil
}

func bundleLog(err error) string {
	if e, ok := errors.As(err); ok {
		if log, ok := e.Details["log"].(string); ok {
			return log
		}
	}

	return err.Error()
}

// inlineStyles replaces each linked stylesheet with a style element. Links
// that cannot be read are left untouched.
func (rw *rewriter) inlineStyles(html string) string {
	for _, m := range linkHrefPattern.FindAllStringSubmatch(html, -1) {
		target, err := rw.resolve(m[1])
		if err != nil {
			continue
		}
		data, err := os.ReadFile(target)
		if err != nil || !utf8.Valid(data) {
			continue
		}
		html = strings.ReplaceAll(html, m[0], "<style>"+string(data)+"</style>")
	}

	return html
}

// inlineImages swaps image sources for data URIs. Unreadable images keep
// their original tag.
func (rw *rewriter) inlineImages(html string) string {
	return imgSrcPattern.ReplaceAllStringFunc(html, func(tag string) string {
		m := imgSrcPattern.FindStringSubmatch(tag)
		if m == nil {
			return tag
		}
		src := m[1]
		target, err := rw.resolve(src)
		if err != nil {
			return tag
		}
		data, err := os.ReadFile(target)
		if err != nil {
			return tag
		}
		uri := "data:" + mimeType(target) + ";base64," + base64.StdEncoding.EncodeToString(data)

		return strings.ReplaceAll(tag, src, uri)
	})
}

func mimeType(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		return "application/octet-stream"
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	return t
}
