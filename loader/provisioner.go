// Package loader prepares mod loaders inside a game instance directory.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"modpack-launcher/catalog"
	"modpack-launcher/config"
	"modpack-launcher/model"
)

// ProfileFileName is the fabric launch profile written into the game directory.
const ProfileFileName = "fabric-profile.json"

// Reason explains why provisioning did not succeed.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonFetchFailed           Reason = "fetch-failed"
	ReasonWriteFailed           Reason = "write-failed"
	ReasonManualInstallRequired Reason = "manual-install-required"
	ReasonUnsupportedLoader     Reason = "unsupported-loader"
)

// Result of Provision. When OK is false the caller launches vanilla instead.
type Result struct {
	OK          bool
	ProfilePath string
	Reason      Reason
	Kind        model.LoaderKind
	Version     string // loader version actually provisioned
	Err         error  // underlying failure, for logs
}

// Notice is the message shown to the user when the launch falls back to vanilla.
func (r Result) Notice() string {
	switch r.Reason {
	case ReasonNone:
		return ""
	case ReasonFetchFailed:
		return fmt.Sprintf("Could not download the %s loader profile; launching vanilla instead.", r.Kind)
	case ReasonWriteFailed:
		return fmt.Sprintf("Could not write the %s loader profile; launching vanilla instead.", r.Kind)
	case ReasonManualInstallRequired:
		return fmt.Sprintf("%s must be installed manually for now; launching vanilla instead.", r.Kind)
	default:
		return fmt.Sprintf("Loader %q is not supported; launching vanilla instead.", r.Kind)
	}
}

// Degraded wraps a failed result as a ProvisionDegraded error.
func (r Result) Degraded() error {
	if r.OK {
		return nil
	}
	return model.NewError(model.ProvisionDegraded, r.Notice(), r.Err)
}

type Provisioner struct {
	meta *catalog.Requester
	log  *zap.SugaredLogger
}

func NewProvisioner(cfg config.Config, log *zap.SugaredLogger) *Provisioner {
	return newProvisioner(cfg.FabricMetaURL, cfg.UserAgent, cfg.CatalogTimeout, cfg.DownloadTimeout, log)
}

func newProvisioner(metaURL, userAgent string, timeout, downloadTimeout time.Duration, log *zap.SugaredLogger) *Provisioner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Provisioner{
		meta: &catalog.Requester{
			BaseURL:         metaURL,
			UserAgent:       userAgent,
			HTTPClient:      &http.Client{},
			Timeout:         timeout,
			DownloadTimeout: downloadTimeout,
		},
		log: log,
	}
}

// Provision makes the requested loader usable from gameDir. It never fails
// the launch: problems are reported through Result.
func (p *Provisioner) Provision(ctx context.Context, gameVersion string, spec model.LoaderSpec, gameDir string) Result {
	kind := spec.Kind
	if kind == "" {
		kind = model.LoaderVanilla
	}
	log := p.log.With(zap.String("loader", string(kind)), zap.String("game_version", gameVersion))

	switch kind {
	case model.LoaderVanilla:
		return Result{OK: true, Kind: kind}
	case model.LoaderFabric:
		res := p.fabric(ctx, gameVersion, spec.ResolvedVersion(), gameDir)
		if !res.OK {
			log.Warnw("Loader provisioning degraded, falling back to vanilla",
				zap.String("reason", string(res.Reason)),
				zap.Error(res.Err),
			)
		} else {
			log.Infow("Fabric profile installed", zap.String("version", res.Version), zap.String("path", res.ProfilePath))
		}
		return res
	case model.LoaderForge, model.LoaderQuilt, model.LoaderNeoForge:
		log.Info("Loader requires manual installation, falling back to vanilla")
		return Result{Reason: ReasonManualInstallRequired, Kind: kind}
	default:
		log.Warn("Unsupported loader, falling back to vanilla")
		return Result{Reason: ReasonUnsupportedLoader, Kind: kind}
	}
}

type loaderEntry struct {
	Loader struct {
		Version string `json:"version"`
		Stable  bool   `json:"stable"`
	} `json:"loader"`
}

func (p *Provisioner) fabric(ctx context.Context, gameVersion, version, gameDir string) Result {
	res := Result{Kind: model.LoaderFabric, Version: version}

	if version == model.LatestLoaderVersion {
		var entries []loaderEntry
		path := "/v2/versions/loader/" + url.PathEscape(gameVersion)
		if err := p.meta.GetJSON(ctx, path, nil, &entries); err != nil {
			res.Reason, res.Err = ReasonFetchFailed, err
			return res
		}
		if len(entries) == 0 || entries[0].Loader.Version == "" {
			res.Reason, res.Err = ReasonFetchFailed, fmt.Errorf("no fabric loader listed for %s", gameVersion)
			return res
		}
		// Entries are listed newest first.
		res.Version = entries[0].Loader.Version
	}

	profileURL := fmt.Sprintf("%s/v2/versions/loader/%s/%s/profile/json",
		p.meta.BaseURL, url.PathEscape(gameVersion), url.PathEscape(res.Version))
	body, err := p.meta.Download(ctx, profileURL)
	if err != nil {
		res.Reason, res.Err = ReasonFetchFailed, err
		return res
	}
	defer body.Close()

	target := filepath.Join(gameDir, ProfileFileName)
	if err := writeAtomic(body, target); err != nil {
		res.Reason, res.Err = err.reason, err.err
		return res
	}

	res.OK = true
	res.ProfilePath = target
	return res
}

type writeError struct {
	reason Reason
	err    error
}

// writeAtomic copies r to a temporary file beside target and renames it into place.
func writeAtomic(r io.Reader, target string) *writeError {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &writeError{ReasonWriteFailed, err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+"-*.part")
	if err != nil {
		return &writeError{ReasonWriteFailed, err}
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		// Reading the body failed mid-stream.
		return &writeError{ReasonFetchFailed, err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &writeError{ReasonWriteFailed, err}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return &writeError{ReasonWriteFailed, err}
	}
	return nil
}
