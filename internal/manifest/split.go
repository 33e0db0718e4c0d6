package manifest

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/keagan/surgclip/internal/clips"
)

// SplitByVideo partitions candidates into train and validation sets by
// video, so all clips of a video land on the same side. round(ratio*videos)
// videos are drawn for validation with rng, keeping at least one video on
// each side when there are two or more. Both outputs keep the input order.
func SplitByVideo(cands []*clips.Candidate, ratio float64, rng *rand.Rand) (train, val []*clips.Candidate) {
	if ratio <= 0 {
		return cands, nil
	}

	seen := make(map[string]struct{})
	var videos []string
	for _, c := range cands {
		if _, ok := seen[c.Clip.VideoID]; !ok {
			seen[c.Clip.VideoID] = struct{}{}
			videos = append(videos, c.Clip.VideoID)
		}
	}
	if len(videos) < 2 {
		return cands, nil
	}
	sort.Strings(videos)

	n := int(math.Round(ratio * float64(len(videos))))
	n = max(1, min(n, len(videos)-1))

	rng.Shuffle(len(videos), func(i, j int) { videos[i], videos[j] = videos[j], videos[i] })
	isVal := make(map[string]bool, n)
	for _, id := range videos[:n] {
		isVal[id] = true
	}

	for _, c := range cands {
		if isVal[c.Clip.VideoID] {
			val = append(val, c)
		} else {
			train = append(train, c)
		}
	}
	return train, val
}

// SplitPaths returns the train and val manifest paths for a manifest.
func SplitPaths(manifestPath string) (train, val string) {
	stem := strings.TrimSuffix(manifestPath, ".json")
	return stem + "_train.json", stem + "_val.json"
}
