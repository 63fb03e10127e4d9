package launch

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/kballard/go-shellquote"

	"modpack-launcher/model"
)

// ProcessOptions is everything the game process is started with.
type ProcessOptions struct {
	JavaPath      string
	Root          string // shared install root holding versions/ and assets/
	VersionNumber string
	VersionType   string
	CustomVersion string // <loader>-<game version>, empty for vanilla
	ProfilePath   string // loader profile written into the instance, empty for vanilla
	MemoryMinMB   int
	MemoryMaxMB   int
	GameDirectory string
	ExtraArgs     []string
	Auth          model.Credentials
}

// BuildOptions assembles the process options for pack, launched with the
// effective loader (which is vanilla when provisioning degraded).
func BuildOptions(pack model.Modpack, effective model.LoaderKind, creds model.Credentials, root, gameDir, javaPath string) (ProcessOptions, error) {
	extra, err := shellquote.Split(pack.Settings.ExtraArgs)
	if err != nil {
		return ProcessOptions{}, model.NewInvalidInputError(
			fmt.Sprintf("custom runtime arguments %q cannot be parsed", pack.Settings.ExtraArgs), err)
	}

	maxMB := pack.Settings.MemoryMB
	if maxMB <= 0 {
		maxMB = model.DefaultMemoryMB
	}
	minMB := model.MinMemoryMB
	if minMB > maxMB {
		minMB = maxMB
	}

	opts := ProcessOptions{
		JavaPath:      javaPath,
		Root:          root,
		VersionNumber: pack.GameVersion,
		VersionType:   "release",
		MemoryMinMB:   minMB,
		MemoryMaxMB:   maxMB,
		GameDirectory: gameDir,
		ExtraArgs:     extra,
		Auth:          creds,
	}
	if effective != "" && effective != model.LoaderVanilla {
		opts.CustomVersion = string(effective) + "-" + pack.GameVersion
	}
	return opts, nil
}

// Version is the version id handed to the game.
func (o ProcessOptions) Version() string {
	if o.CustomVersion != "" {
		return o.CustomVersion
	}
	return o.VersionNumber
}

// ClientJar is the vanilla client jar under the install root.
func (o ProcessOptions) ClientJar() string {
	return filepath.Join(o.Root, "versions", o.VersionNumber, o.VersionNumber+".jar")
}

// Args is the java command line, without the executable.
func (o ProcessOptions) Args() []string {
	args := []string{
		"-Xms" + strconv.Itoa(o.MemoryMinMB) + "M",
		"-Xmx" + strconv.Itoa(o.MemoryMaxMB) + "M",
	}
	args = append(args, o.ExtraArgs...)
	args = append(args,
		"-jar", o.ClientJar(),
		"--username", o.Auth.Username,
		"--uuid", o.Auth.AccountID,
		"--accessToken", o.Auth.AccessToken,
		"--version", o.Version(),
		"--versionType", o.VersionType,
		"--gameDir", o.GameDirectory,
		"--assetsDir", filepath.Join(o.Root, "assets"),
	)
	return args
}
