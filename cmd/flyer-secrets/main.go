package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/betbot/flyerbot/pkg/secretstore"
)

// 只导入凭证，其余配置仍走 .env / yaml
var credentialKeys = map[string]bool{
	"BITFLYER_API_KEY":    true,
	"BITFLYER_API_SECRET": true,
}

func main() {
	var (
		inPath    = flag.String("in", ".env", "input .env file path")
		dbPath    = flag.String("badger", getenv("SECRETS_DB", "data/secrets.badger"), "badger secrets db path")
		secretKey = flag.String("secret-key", getenv("SECRETS_KEY", ""), "badger encryption key (32 bytes base64/hex)")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("secret key is required: set SECRETS_KEY or pass -secret-key"))
	}

	kv, err := godotenv.Read(*inPath)
	if err != nil {
		fatal(err)
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{Path: *dbPath, EncryptionKey: keyBytes})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	var written []string
	for k, v := range kv {
		if !credentialKeys[k] || strings.TrimSpace(v) == "" {
			continue
		}
		if err := ss.SetString(secretstore.EnvPrefix+k, v); err != nil {
			fatal(err)
		}
		written = append(written, k)
	}
	sort.Strings(written)
	fmt.Fprintf(os.Stderr, "已导入 %v 到 %s，可以从 %s 中删除这些行\n", written, *dbPath, *inPath)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
