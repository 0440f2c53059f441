// Package bootcp opens the library classpath that desugaring resolves supertypes against.
package bootcp

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/zerr"
)

// Factory opens classpath providers for one conversion.
type Factory struct {
	log    ports.Logger
	getenv func(string) string
}

// NewFactory creates a Factory. getenv looks up the SDK environment variables.
func NewFactory(log ports.Logger, getenv func(string) string) *Factory {
	return &Factory{log: log, getenv: getenv}
}

// OpenBoot implements ports.ClasspathFactory.
func (f *Factory) OpenBoot(cfg domain.BuildConfiguration) (ports.ClasspathProvider, error) {
	jars := f.Discover(cfg)
	if len(jars) == 0 {
		f.log.Warn("no Android SDK found; desugaring without a boot classpath")
		return Empty(), nil
	}
	return Open(jars)
}

// OpenEmpty implements ports.ClasspathFactory.
func (f *Factory) OpenEmpty() ports.ClasspathProvider {
	return Empty()
}

// Discover returns the boot classpath jars: the explicit list when configured, otherwise the
// android.jar of the compile SDK platform plus the optional legacy HTTP library.
func (f *Factory) Discover(cfg domain.BuildConfiguration) []string {
	if len(cfg.BootClasspath) > 0 {
		return cfg.BootClasspath
	}
	sdk := cfg.AndroidSDK
	for _, name := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if sdk != "" {
			break
		}
		sdk = f.getenv(name)
	}
	if sdk == "" {
		return nil
	}
	platform := filepath.Join(sdk, "platforms", "android-"+strconv.Itoa(cfg.CompileSDK))
	var jars []string
	for _, jar := range []string{
		filepath.Join(platform, "android.jar"),
		filepath.Join(platform, "optional", "org.apache.http.legacy.jar"),
	} {
		if _, err := os.Stat(jar); err == nil {
			jars = append(jars, jar)
		}
	}
	if len(jars) == 0 {
		f.log.Warn("android.jar not found under " + platform)
	}
	return jars
}

// Provider resolves class headers from a list of jars. Earlier jars shadow later ones.
type Provider struct {
	mu      sync.Mutex
	paths   []string
	closers []io.Closer
	files   map[string]*zip.File
	headers map[string]ports.ClassHeader
}

// Empty returns a provider without entries.
func Empty() *Provider {
	return &Provider{files: map[string]*zip.File{}, headers: map[string]ports.ClassHeader{}}
}

// Open indexes the class members of every jar. The jars stay open until Close.
func Open(paths []string) (*Provider, error) {
	p := Empty()
	for _, path := range paths {
		zr, err := zip.OpenReader(path)
		if err != nil {
			closeErr := p.Close()
			return nil, errors.Join(domain.ErrInputReadFailed, zerr.With(err, "classpath", path), closeErr)
		}
		p.paths = append(p.paths, path)
		p.closers = append(p.closers, zr)
		for _, f := range zr.File {
			name := f.Name
			if filepath.Ext(name) != domain.ClassFileExt {
				continue
			}
			binary := domain.BinaryNameFromPath(name)
			if _, ok := p.files[binary]; !ok {
				p.files[binary] = f
			}
		}
	}
	return p, nil
}

// Lookup implements ports.ClasspathProvider.
func (p *Provider) Lookup(binaryName string) (ports.ClassHeader, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.headers[binaryName]; ok {
		return h, true, nil
	}
	f, ok := p.files[binaryName]
	if !ok {
		return ports.ClassHeader{}, false, nil
	}
	data, err := readMember(f)
	if err != nil {
		return ports.ClassHeader{}, false, zerr.With(err, "class", binaryName)
	}
	c, err := classfile.ParseHeader(data)
	if err != nil {
		return ports.ClassHeader{}, false, zerr.With(err, "class", binaryName)
	}
	h := ports.ClassHeader{
		Name:        c.Name,
		SuperName:   c.SuperName,
		Interfaces:  c.Interfaces,
		AccessFlags: c.AccessFlags,
	}
	p.headers[binaryName] = h
	return h, true, nil
}

// Entries implements ports.ClasspathProvider.
func (p *Provider) Entries() []string {
	return append([]string(nil), p.paths...)
}

// Close releases every open jar.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	if err := errors.Join(errs...); err != nil {
		return errors.Join(domain.ErrResourceCleanup, err)
	}
	return nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Join(domain.ErrInputReadFailed, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Join(domain.ErrInputReadFailed, err)
	}
	return data, nil
}
