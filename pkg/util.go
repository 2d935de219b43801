package pkg

import (
	"fmt"
	"os"

	"github.com/notnil/chess"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func getSquare(f chess.File, r chess.Rank) chess.Square {
	return chess.Square((int(r) * 8) + int(f))
}

// parseSquare turns "e4" into a square. Unknown text is chess.NoSquare.
func parseSquare(s string) chess.Square {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return chess.NoSquare
	}
	return getSquare(chess.File(s[0]-'a'), chess.Rank(s[1]-'1'))
}

// InitLog builds a logger that appends JSON lines to dest. Every line carries
// the component name.
func InitLog(dest, component string) (*zap.Logger, error) {
	f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zap.DebugLevel)
	return zap.New(core).With(zap.String("component", component)), nil
}
