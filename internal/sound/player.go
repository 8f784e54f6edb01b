package sound

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"voicetype/internal/domain"
	"voicetype/internal/process"
)

// Player plays SOUND_FILE through the first available system player
// without waiting for playback to finish.
type Player struct {
	file     string
	players  []string
	lookPath func(string) (string, error)
	beep     func() error
	logger   zerolog.Logger
}

func NewPlayer(file string, logger zerolog.Logger) *Player {
	return &Player{
		file:     file,
		players:  defaultPlayers(runtime.GOOS),
		lookPath: exec.LookPath,
		beep:     func() error { return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration) },
		logger:   logger,
	}
}

func defaultPlayers(goos string) []string {
	if goos == "darwin" {
		return []string{"afplay"}
	}
	return []string{"pw-play", "paplay", "aplay"}
}

// Play starts cue in the background. Missing files or players are skipped
// silently; an error cue without a sound file falls back to a beep.
func (p *Player) Play(cue domain.Cue) {
	if p.file == "" {
		if cue == domain.CueError && p.beep != nil {
			if err := p.beep(); err != nil {
				p.logger.Debug().Err(err).Msg("beep failed")
			}
		}
		return
	}
	if _, err := os.Stat(p.file); err != nil {
		p.logger.Debug().Err(err).Str("file", p.file).Msg("sound file unavailable")
		return
	}

	for _, player := range p.players {
		binary, err := p.lookPath(player)
		if err != nil {
			continue
		}
		if _, err := process.StartDetached(process.Spec{Binary: binary, Args: []string{p.file}}); err != nil {
			p.logger.Debug().Err(err).Str("player", player).Msg("sound player failed")
			continue
		}
		p.logger.Debug().Str("cue", string(cue)).Str("player", player).Msg("sound cue started")
		return
	}
	p.logger.Debug().Msg("no sound player available")
}
