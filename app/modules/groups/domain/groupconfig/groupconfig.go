package groupconfig

import (
	"log/slog"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/schedule"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// Read resolves the group config of a round. Dashboard settings on the round
// win; otherwise Groupifier settings on the round activities are used.
// Missing or malformed data is logged and yields Default.
func Read(logger *slog.Logger, round wcif.Round, roundActivities ...schedule.Activity) Config {
	if logger == nil {
		logger = slog.Default()
	}

	if ext := wcif.FindExtension(round.Extensions, DashboardExtensionID); ext != nil {
		decoded, err := Decode(*ext)
		if err == nil {
			return decoded.Config()
		}
		logger.Warn("Ignoring malformed group config",
			slog.String("round", round.ID),
			slog.String("extension", ext.ID),
			slog.Any("error", err),
		)
	}

	if cfg, ok := readGroupifier(logger, round.ID, roundActivities); ok {
		return cfg
	}
	return Default()
}

// readGroupifier combines per activity Groupifier settings. Equal counts on
// every stage become a uniform count, differing ones a per room count.
func readGroupifier(logger *slog.Logger, roundID string, roundActivities []schedule.Activity) (Config, bool) {
	counts := map[int]int{}
	for _, a := range roundActivities {
		ext := wcif.FindExtension(a.Extensions, GroupifierExtensionID)
		if ext == nil || a.Room == nil {
			continue
		}
		decoded, err := Decode(*ext)
		if err != nil {
			logger.Warn("Ignoring malformed group config",
				slog.String("round", roundID),
				slog.Int("activity_id", a.ID),
				slog.String("extension", ext.ID),
				slog.Any("error", err),
			)
			continue
		}
		counts[a.Room.ID] = decoded.Config().Groups.ForRoom(a.Room.ID)
	}
	if len(counts) == 0 {
		return Config{}, false
	}

	first, same := -1, true
	for _, n := range counts {
		if first == -1 {
			first = n
		} else if n != first {
			same = false
		}
	}
	if same {
		return Config{Groups: Uniform(first), SpreadGroupsAcrossAllStages: true}, true
	}
	return Config{Groups: PerRoom(counts), SpreadGroupsAcrossAllStages: false}, true
}

// Write returns a copy of round carrying cfg in the dashboard extension.
func Write(round wcif.Round, cfg Config) (wcif.Round, error) {
	ext, err := Encode(cfg)
	if err != nil {
		return round, err
	}
	round.Extensions = wcif.SetExtension(round.Extensions, ext)
	return round, nil
}
