package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/poiesic/parcelsuggest/core"
	_ "github.com/sijms/go-ora/v2"
)

// DefaultOracleQuery selects parcel pairings from an assessor table.
const DefaultOracleQuery = `
	SELECT Account_Num, Situs_Address
	FROM PROPERTYDATA
	WHERE Situs_Address IS NOT NULL
	ORDER BY Account_Num
`

// OracleConfig holds connection settings for an Oracle assessor database.
type OracleConfig struct {
	Host           string
	Port           string
	Service        string
	Username       string
	Password       string
	WalletLocation string
}

// OracleDSN builds an encoded go-ora connection string.
// With a wallet the connection uses mTLS; otherwise plain TCPS.
func OracleDSN(cfg OracleConfig) string {
	if cfg.WalletLocation != "" {
		return fmt.Sprintf(
			"oracle://%s:%s@%s:%s/%s?ssl=true&wallet_location=%s",
			url.PathEscape(cfg.Username), url.PathEscape(cfg.Password),
			cfg.Host, cfg.Port, cfg.Service, url.PathEscape(cfg.WalletLocation))
	}

	return (&url.URL{
		Scheme:   "oracle",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Service,
		RawQuery: "ssl=true",
	}).String()
}

// OpenOracle opens and pings an Oracle database.
func OpenOracle(ctx context.Context, cfg OracleConfig) (*sql.DB, error) {
	db, err := sql.Open("oracle", OracleDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// OracleReader reads pairings with a query returning (parcel id, address) rows.
type OracleReader struct {
	DB *sql.DB

	// Query defaults to DefaultOracleQuery.
	Query string
}

var _ PairingReader = (*OracleReader)(nil)

// ReadPairings runs the query and collects the rows.
func (o *OracleReader) ReadPairings(ctx context.Context) ([]core.ParcelPairing, error) {
	if o.DB == nil {
		return nil, ErrDatabaseRequired
	}
	query := o.Query
	if strings.TrimSpace(query) == "" {
		query = DefaultOracleQuery
	}

	rows, err := o.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairings: %w", err)
	}
	defer rows.Close()

	var pairings []core.ParcelPairing
	for rows.Next() {
		var id, address sql.NullString
		if err := rows.Scan(&id, &address); err != nil {
			return nil, fmt.Errorf("failed to scan pairing: %w", err)
		}
		if !id.Valid {
			continue
		}
		pairings = append(pairings, core.ParcelPairing{
			ParcelID:    strings.TrimSpace(id.String),
			FullAddress: strings.TrimSpace(address.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pairings: %w", err)
	}
	return pairings, nil
}
