package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/eduquest/questgate/internal/model"
	"github.com/rs/zerolog"
)

// GeneratorClient talks to the bonus-game generation microservice. Generation
// is slow (it runs a model over the source document), so the client carries
// its own, longer timeout. Calls are not idempotent: two generations from the
// same document may yield different games.
type GeneratorClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewGeneratorClient creates a GeneratorClient for the given base URL.
func NewGeneratorClient(baseURL string, timeout time.Duration, log zerolog.Logger) *GeneratorClient {
	return &GeneratorClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "generator_client").Logger(),
	}
}

// GenerateBonusGame produces a matching or ordering puzzle from the quest's
// source document.
func (c *GeneratorClient) GenerateBonusGame(ctx context.Context, documentID string) (*model.BonusGame, error) {
	payload, err := json.Marshal(map[string]string{"document_id": documentID})
	if err != nil {
		return nil, &Error{Source: SourceGenerator, Kind: KindTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate_bonus_game", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Source: SourceGenerator, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Source: SourceGenerator, Kind: KindTransport, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return nil, classify(SourceGenerator, res)
	}

	var game model.BonusGame
	if err := json.NewDecoder(res.Body).Decode(&game); err != nil {
		return nil, &Error{Source: SourceGenerator, Kind: KindTransport, Status: res.StatusCode, Err: err}
	}
	if err := game.Validate(); err != nil {
		return nil, &Error{
			Source: SourceGenerator,
			Kind:   KindTransport,
			Status: res.StatusCode,
			Err:    fmt.Errorf("malformed game payload: %w", err),
		}
	}

	c.log.Debug().
		Str("document_id", documentID).
		Str("game_type", string(game.GameType)).
		Dur("elapsed", time.Since(started)).
		Msg("Bonus game generated")

	return &game, nil
}
