// file: cmd/serve/config.go

package serve

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Options in the on-disk config file. Pointer
// fields distinguish an absent key from an explicit zero.
type fileConfig struct {
	Device   *string `yaml:"device"`
	Baud     *int    `yaml:"baud"`
	RTSCTS   *bool   `yaml:"rtscts"`
	Model    *int    `yaml:"model"`
	Profile  *string `yaml:"profile"`
	Attr     *string `yaml:"attr"`
	DME      *bool   `yaml:"dme"`
	Tildes   *bool   `yaml:"tildes"`
	Upcase   *bool   `yaml:"upcase"`
	Magic    *bool   `yaml:"tsload"`
	FDCMode  *bool   `yaml:"fdc"`
	AttrName *string `yaml:"xattr-name"`
	Labels   struct {
		Root   *string `yaml:"root"`
		Parent *string `yaml:"parent"`
		Dir    *string `yaml:"dir"`
	} `yaml:"labels"`
	Paths    []string `yaml:"paths"`
	Image    *string  `yaml:"image"`
	ROM      *string  `yaml:"rom"`
	LibDir   *string  `yaml:"libdir"`
	PacingMS *int     `yaml:"pacing-ms"`
}

// LoadDefaults layers the config file and the environment over the
// stock settings. Command line flags go on top in the caller, so the
// order ends up flag, environment, file, default.
func LoadDefaults(path string) (*Options, error) {
	o := DefaultOptions()
	if err := applyFile(o, path); err != nil {
		return nil, err
	}
	applyEnv(o)
	return o, nil
}

// configPath picks the config file: the explicit path, then
// $DLPLUS_CONFIG, then ~/.dlplus.yaml.
func configPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("DLPLUS_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".dlplus.yaml")
}

func applyFile(o *Options, explicit string) error {
	path := configPath(explicit)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		// only an explicitly named file has to exist
		if explicit == "" && os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "config file")
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return errors.Wrapf(err, "config file %s", path)
	}

	setString(&o.Device, fc.Device)
	setInt(&o.Baud, fc.Baud)
	setBool(&o.RTSCTS, fc.RTSCTS)
	setInt(&o.Model, fc.Model)
	setString(&o.Profile, fc.Profile)
	setString(&o.Attr, fc.Attr)
	setBool(&o.DME, fc.DME)
	setBool(&o.Tildes, fc.Tildes)
	setBool(&o.Upcase, fc.Upcase)
	setBool(&o.Magic, fc.Magic)
	setBool(&o.FDCMode, fc.FDCMode)
	setString(&o.AttrName, fc.AttrName)
	setString(&o.RootLabel, fc.Labels.Root)
	setString(&o.ParentLabel, fc.Labels.Parent)
	setString(&o.DirLabel, fc.Labels.Dir)
	if len(fc.Paths) > 0 {
		o.Paths = fc.Paths
	}
	setString(&o.Image, fc.Image)
	setString(&o.ROM, fc.ROM)
	setString(&o.LibDir, fc.LibDir)
	setInt(&o.PacingMS, fc.PacingMS)
	return nil
}

// applyEnv reads the environment names older installs already have
// set, so a shell profile keeps working across versions.
func applyEnv(o *Options) {
	envString("CLIENT_TTY", &o.Device)
	envInt("BAUD", &o.Baud)
	envBool("RTSCTS", &o.RTSCTS)
	envString("PROFILE", &o.Profile)
	envString("ATTR", &o.Attr)
	envBool("DME", &o.DME)
	envBool("TILDES", &o.Tildes)
	envBool("TSLOAD", &o.Magic)
	envBool("FDC_MODE", &o.FDCMode)
	envString("ROOT_LABEL", &o.RootLabel)
	envString("PARENT_LABEL", &o.ParentLabel)
	envString("DIR_LABEL", &o.DirLabel)
	envString("XATTR_NAME", &o.AttrName)
	envString("DLPLUS_LIB", &o.LibDir)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func envBool(name string, dst *bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		*dst = true
	case "0", "false", "off", "no":
		*dst = false
	}
}
