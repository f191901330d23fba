package mysql

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qiming/entity"
)

func (s *MySql) GetCode(code string) (*entity.AuthorizationCode, error) {
	stmt, err := s.stmtSelectCode()
	if err != nil {
		return nil, err
	}
	return scanCode(stmt.QueryRow(code))
}

func scanCode(row *sql.Row) (*entity.AuthorizationCode, error) {
	var record entity.AuthorizationCode
	var activatedAt, expiresAt sql.NullTime
	err := row.Scan(
		&record.Code,
		&record.Status,
		&record.DeviceId,
		&activatedAt,
		&record.ActivatedIp,
		&expiresAt,
		&record.BatchId,
		&record.Metadata,
		&record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan code: %w", err)
	}
	if activatedAt.Valid {
		record.ActivatedAt = &activatedAt.Time
	}
	if expiresAt.Valid {
		record.ExpiresAt = &expiresAt.Time
	}
	return &record, nil
}

// ActivateCode runs the conditional UNUSED -> USED update. Zero affected rows
// means another request already claimed the code; the caller gets nil.
func (s *MySql) ActivateCode(code, deviceId, activatedIp string) (*entity.AuthorizationCode, error) {
	stmt, err := s.stmtActivateCode()
	if err != nil {
		return nil, err
	}
	result, err := stmt.Exec(entity.CodeUsed, deviceId, time.Now().UTC(), activatedIp, code, entity.CodeUnused)
	if err != nil {
		return nil, fmt.Errorf("activate code: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetCode(code)
}

func (s *MySql) CreateCodes(codes []entity.AuthorizationCode) (int64, error) {
	stmt, err := s.stmtInsertCode()
	if err != nil {
		return 0, err
	}
	var inserted int64
	for i := range codes {
		c := &codes[i]
		var expiresAt interface{}
		if c.ExpiresAt != nil {
			expiresAt = *c.ExpiresAt
		}
		result, err := stmt.Exec(c.Code, c.Status, expiresAt, c.BatchId, c.Metadata, c.CreatedAt)
		if err != nil {
			return inserted, fmt.Errorf("insert code: %w", err)
		}
		n, _ := result.RowsAffected()
		inserted += n
	}
	return inserted, nil
}

func (s *MySql) UpdateCodeStatus(code string, status entity.CodeStatus) error {
	stmt, err := s.stmtUpdateCodeStatus()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(status, code)
	return err
}

func (s *MySql) SaveUsageRecord(record *entity.UsageRecord) error {
	stmt, err := s.stmtInsertUsage()
	if err != nil {
		return err
	}
	babyInfo, err := json.Marshal(record.BabyInfo)
	if err != nil {
		return fmt.Errorf("marshal baby info: %w", err)
	}
	names, err := json.Marshal(record.Names)
	if err != nil {
		return fmt.Errorf("marshal names: %w", err)
	}
	_, err = stmt.Exec(record.Id, record.Code, record.UserId, record.DeviceId,
		babyInfo, names, record.GenerationTime, record.CreatedAt)
	return err
}

func scanUsageRows(rows *sql.Rows) ([]*entity.UsageRecord, error) {
	var records []*entity.UsageRecord
	for rows.Next() {
		var record entity.UsageRecord
		var babyInfo, names []byte
		if err := rows.Scan(
			&record.Id,
			&record.Code,
			&record.UserId,
			&record.DeviceId,
			&babyInfo,
			&names,
			&record.GenerationTime,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		if err := json.Unmarshal(babyInfo, &record.BabyInfo); err != nil {
			return nil, fmt.Errorf("decode baby info: %w", err)
		}
		if err := json.Unmarshal(names, &record.Names); err != nil {
			return nil, fmt.Errorf("decode names: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

func (s *MySql) GetUsageRecords(userId string, limit, offset int64) ([]*entity.UsageRecord, int64, error) {
	total, err := s.CountUsageRecords(userId)
	if err != nil {
		return nil, 0, err
	}
	stmt, err := s.stmtSelectUsagePage()
	if err != nil {
		return nil, 0, err
	}
	rows, err := stmt.Query(userId, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := scanUsageRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *MySql) GetUsageRecord(id string) (*entity.UsageRecord, error) {
	stmt, err := s.stmtSelectUsage()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanUsageRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (s *MySql) CountUsageRecords(userId string) (int64, error) {
	stmt, err := s.stmtCountUsage()
	if err != nil {
		return 0, err
	}
	var total int64
	if err = stmt.QueryRow(userId).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *MySql) GetRecentUsageRecords(userId string, limit int64) ([]*entity.UsageRecord, error) {
	stmt, err := s.stmtSelectUsagePage()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(userId, limit, 0)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsageRows(rows)
}

func (s *MySql) SaveFavorite(favorite *entity.Favorite) error {
	stmt, err := s.stmtInsertFavorite()
	if err != nil {
		return err
	}
	name, err := json.Marshal(favorite.Name)
	if err != nil {
		return fmt.Errorf("marshal name: %w", err)
	}
	_, err = stmt.Exec(favorite.Id, favorite.UserId, favorite.NameId, name, favorite.CreatedAt)
	return err
}

func scanFavoriteRows(rows *sql.Rows) ([]*entity.Favorite, error) {
	var favorites []*entity.Favorite
	for rows.Next() {
		var favorite entity.Favorite
		var name []byte
		if err := rows.Scan(
			&favorite.Id,
			&favorite.UserId,
			&favorite.NameId,
			&name,
			&favorite.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		if err := json.Unmarshal(name, &favorite.Name); err != nil {
			return nil, fmt.Errorf("decode name: %w", err)
		}
		favorites = append(favorites, &favorite)
	}
	return favorites, rows.Err()
}

func (s *MySql) GetFavorite(id string) (*entity.Favorite, error) {
	stmt, err := s.stmtSelectFavorite()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites, err := scanFavoriteRows(rows)
	if err != nil {
		return nil, err
	}
	if len(favorites) == 0 {
		return nil, nil
	}
	return favorites[0], nil
}

func (s *MySql) GetFavoriteByNameId(userId, nameId string) (*entity.Favorite, error) {
	stmt, err := s.stmtSelectFavoriteByName()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(userId, nameId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites, err := scanFavoriteRows(rows)
	if err != nil {
		return nil, err
	}
	if len(favorites) == 0 {
		return nil, nil
	}
	return favorites[0], nil
}

func (s *MySql) GetFavorites(userId string, limit int64) ([]*entity.Favorite, int64, error) {
	total, err := s.CountFavorites(userId)
	if err != nil {
		return nil, 0, err
	}
	stmt, err := s.stmtSelectFavorites()
	if err != nil {
		return nil, 0, err
	}
	rows, err := stmt.Query(userId, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	favorites, err := scanFavoriteRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return favorites, total, nil
}

func (s *MySql) DeleteFavorite(id string) error {
	stmt, err := s.stmtDeleteFavorite()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(id)
	return err
}

func (s *MySql) CountFavorites(userId string) (int64, error) {
	stmt, err := s.stmtCountFavorites()
	if err != nil {
		return 0, err
	}
	var total int64
	if err = stmt.QueryRow(userId).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
