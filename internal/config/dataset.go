package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownDataset is returned when a dataset name is not registered.
var ErrUnknownDataset = errors.New("unknown dataset")

// Dataset declares where a dataset's videos and annotations live and how its
// clips are cut. Paths are relative to RawRoot unless absolute.
type Dataset struct {
	RawRoot  string `yaml:"raw_root"`
	VideoDir string `yaml:"video_dir"`
	VideoExt string `yaml:"video_ext"`

	// IDFormat turns a video number into its id, e.g. "video%02d".
	IDFormat string `yaml:"id_format"`
	FirstID  int    `yaml:"first_id"`
	LastID   int    `yaml:"last_id"`

	PhaseDir    string `yaml:"phase_dir"`
	PhaseSuffix string `yaml:"phase_suffix"`
	// ToolDir may be empty for phase-only datasets.
	ToolDir    string `yaml:"tool_dir"`
	ToolSuffix string `yaml:"tool_suffix"`
	// ToolHeaderID is the video number whose tool file header defines the
	// tool vocabulary.
	ToolHeaderID int `yaml:"tool_header_id"`

	ClipFrames int `yaml:"clip_frames"`
	MinFrames  int `yaml:"min_frames"`
	NumPhases  int `yaml:"num_phases"`

	// OutputSubdir is where clips go, relative to the base path.
	OutputSubdir string `yaml:"output_subdir"`
	// Manifest is the manifest file name written under the base path.
	Manifest string `yaml:"manifest"`

	// keys written in the config file, nil for records built in code
	keys map[string]bool
}

// UnmarshalYAML remembers which keys the file set, so that an explicit
// empty string or zero still overrides the built-in value.
func (d *Dataset) UnmarshalYAML(node *yaml.Node) error {
	type plain Dataset
	if err := node.Decode((*plain)(d)); err != nil {
		return err
	}
	if node.Kind == yaml.MappingNode {
		d.keys = make(map[string]bool, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			d.keys[node.Content[i].Value] = true
		}
	}
	return nil
}

var builtinDatasets = map[string]Dataset{
	"cholec80": {
		RawRoot:      "./RAW_320/cholec80",
		VideoDir:     "videos",
		VideoExt:     ".mp4",
		IDFormat:     "video%02d",
		FirstID:      1,
		LastID:       80,
		PhaseDir:     "phase_annotations",
		PhaseSuffix:  "-phase.txt",
		ToolDir:      "tool_annotations",
		ToolSuffix:   "-tool.txt",
		ToolHeaderID: 1,
		ClipFrames:   300,
		MinFrames:    80,
		NumPhases:    7,
		OutputSubdir: "cholec80/clips",
		Manifest:     "cholec80_info.json",
	},
}

// DatasetNames returns every dataset name known to c, sorted.
func (c *Config) DatasetNames() []string {
	seen := make(map[string]struct{})
	for name := range builtinDatasets {
		seen[name] = struct{}{}
	}
	for name := range c.Datasets {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the dataset record for name. Fields set in the config file
// override the built-in record field by field.
func (c *Config) Lookup(name string) (Dataset, error) {
	base, builtin := builtinDatasets[name]
	override, custom := c.Datasets[name]
	if !builtin && !custom {
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	d := base.merge(override)
	if err := d.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("dataset %q: %w", name, err)
	}
	return d, nil
}

// merge overlays o onto d. Keys o was decoded with win even when empty;
// without decoded keys only non-zero fields of o win.
func (d Dataset) merge(o Dataset) Dataset {
	overlay(o, "raw_root", &d.RawRoot, o.RawRoot)
	overlay(o, "video_dir", &d.VideoDir, o.VideoDir)
	overlay(o, "video_ext", &d.VideoExt, o.VideoExt)
	overlay(o, "id_format", &d.IDFormat, o.IDFormat)
	overlay(o, "first_id", &d.FirstID, o.FirstID)
	overlay(o, "last_id", &d.LastID, o.LastID)
	overlay(o, "phase_dir", &d.PhaseDir, o.PhaseDir)
	overlay(o, "phase_suffix", &d.PhaseSuffix, o.PhaseSuffix)
	overlay(o, "tool_dir", &d.ToolDir, o.ToolDir)
	overlay(o, "tool_suffix", &d.ToolSuffix, o.ToolSuffix)
	overlay(o, "tool_header_id", &d.ToolHeaderID, o.ToolHeaderID)
	overlay(o, "clip_frames", &d.ClipFrames, o.ClipFrames)
	overlay(o, "min_frames", &d.MinFrames, o.MinFrames)
	overlay(o, "num_phases", &d.NumPhases, o.NumPhases)
	overlay(o, "output_subdir", &d.OutputSubdir, o.OutputSubdir)
	overlay(o, "manifest", &d.Manifest, o.Manifest)
	d.keys = nil
	return d
}

func overlay[T comparable](o Dataset, key string, dst *T, v T) {
	var zero T
	if o.keys != nil && o.keys[key] || o.keys == nil && v != zero {
		*dst = v
	}
}

// Validate checks that the record is usable.
func (d Dataset) Validate() error {
	switch {
	case d.RawRoot == "":
		return errors.New("raw_root is required")
	case d.IDFormat == "":
		return errors.New("id_format is required")
	case d.LastID < d.FirstID:
		return fmt.Errorf("last_id %d before first_id %d", d.LastID, d.FirstID)
	case d.PhaseDir == "" && d.ToolDir == "":
		return errors.New("at least one of phase_dir or tool_dir is required")
	case d.ClipFrames <= 0:
		return fmt.Errorf("clip_frames must be positive, got %d", d.ClipFrames)
	case d.MinFrames <= 0 || d.MinFrames > d.ClipFrames:
		return fmt.Errorf("min_frames must be in [1, clip_frames], got %d", d.MinFrames)
	case d.OutputSubdir == "":
		return errors.New("output_subdir is required")
	case d.Manifest == "":
		return errors.New("manifest is required")
	}
	return nil
}

// VideoIDs lists the dataset's video ids in order.
func (d Dataset) VideoIDs() []string {
	ids := make([]string, 0, d.LastID-d.FirstID+1)
	for n := d.FirstID; n <= d.LastID; n++ {
		ids = append(ids, d.ID(n))
	}
	return ids
}

// ID formats a video number.
func (d Dataset) ID(n int) string {
	return fmt.Sprintf(d.IDFormat, n)
}

// VideoPath is the source video of id.
func (d Dataset) VideoPath(id string) string {
	return d.resolve(d.VideoDir, id+d.VideoExt)
}

// PhasePath is the phase annotation file of id, or "" without phases.
func (d Dataset) PhasePath(id string) string {
	if d.PhaseDir == "" {
		return ""
	}
	return d.resolve(d.PhaseDir, id+d.PhaseSuffix)
}

// ToolPath is the tool annotation file of id, or "" without tools.
func (d Dataset) ToolPath(id string) string {
	if d.ToolDir == "" {
		return ""
	}
	return d.resolve(d.ToolDir, id+d.ToolSuffix)
}

// ToolHeaderPath is the tool file whose header defines the tool vocabulary.
func (d Dataset) ToolHeaderPath() string {
	n := d.ToolHeaderID
	if n == 0 {
		n = d.FirstID
	}
	return d.ToolPath(d.ID(n))
}

func (d Dataset) resolve(dir, name string) string {
	if filepath.IsAbs(dir) {
		return filepath.Join(dir, name)
	}
	return filepath.Join(d.RawRoot, dir, name)
}
