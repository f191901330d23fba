package main

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"qiming/entity"
	"qiming/internal/config"
	"qiming/internal/database"
	"qiming/internal/database/mysql"
)

// store is the subset of the persistence layer the generator needs.
type store interface {
	CreateCodes(codes []entity.AuthorizationCode) (int64, error)
}

func main() {
	app := &cli.App{
		Name:  "codegen",
		Usage: "generate a batch of authorization codes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "conf",
				Value: "config.yml",
				Usage: "path to config file",
			},
			&cli.IntFlag{
				Name:  "count",
				Value: 10,
				Usage: "number of codes to generate",
			},
			&cli.StringFlag{
				Name:  "batch",
				Value: "",
				Usage: "batch label stored with each code",
			},
			&cli.StringFlag{
				Name:  "metadata",
				Value: "",
				Usage: "free-form note stored with each code",
			},
			&cli.IntFlag{
				Name:  "expires-days",
				Value: 90,
				Usage: "days until unused codes expire, 0 for no expiry",
			},
		},
		Action: generate,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func generate(c *cli.Context) error {
	conf := config.MustLoad(c.String("conf"))

	var db store
	switch conf.Storage {
	case "mysql":
		client, err := mysql.NewSQLClient(conf)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer client.Close()
		db = client
	default:
		db = database.NewMongoClient(conf)
	}

	count := c.Int("count")
	if count <= 0 {
		return fmt.Errorf("count must be positive")
	}

	batchId := c.String("batch")
	if batchId == "" {
		batchId = time.Now().UTC().Format("20060102-150405")
	}

	var expiresAt *time.Time
	if days := c.Int("expires-days"); days > 0 {
		t := time.Now().UTC().AddDate(0, 0, days)
		expiresAt = &t
	}

	now := time.Now().UTC()
	seen := make(map[string]struct{}, count)
	codes := make([]entity.AuthorizationCode, 0, count)
	for len(codes) < count {
		code, err := randomCode()
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, entity.AuthorizationCode{
			Code:      code,
			Status:    entity.CodeUnused,
			ExpiresAt: expiresAt,
			BatchId:   batchId,
			Metadata:  c.String("metadata"),
			CreatedAt: now,
		})
	}

	inserted, err := db.CreateCodes(codes)
	if err != nil {
		return fmt.Errorf("store codes: %w", err)
	}

	fmt.Printf("batch %s: %d codes generated, %d stored\n", batchId, count, inserted)
	preview := codes
	if len(preview) > 10 {
		preview = preview[:10]
	}
	for _, code := range preview {
		fmt.Println(code.Code)
	}
	if len(codes) > len(preview) {
		fmt.Printf("... and %d more\n", len(codes)-len(preview))
	}
	return nil
}

// randomCode draws twelve characters from the code alphabet with crypto/rand
// and formats them as BABY-XXXX-XXXX-XXXX.
func randomCode() (string, error) {
	alphabet := entity.CodeAlphabet
	max := big.NewInt(int64(len(alphabet)))

	var sb strings.Builder
	sb.WriteString(entity.CodePrefix)
	for i := 0; i < 12; i++ {
		if i%4 == 0 {
			sb.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}
