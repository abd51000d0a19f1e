package credential

import (
	"time"

	"warden/common"
	"warden/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type HistoryKeeperTraits interface {
	HasBeenUsed(uid types.ID, candidate string) (bool, error)
	AppendTx(tx *gorm.DB, uid types.ID, priorHash string) error
}

type HistoryKeeper struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewHistoryKeeper(ds *persistence.DataSourceManager) *HistoryKeeper {
	return &HistoryKeeper{dataSource: ds, idWorker: sonyflake.NewSonyflake(sonyflake.Settings{})}
}

// HasBeenUsed compares the candidate against every historical hash of the user.
func (k *HistoryKeeper) HasBeenUsed(uid types.ID, candidate string) (bool, error) {
	var records []PasswordHistory
	db := k.dataSource.GormDB()
	if err := db.Where(&PasswordHistory{UserID: uid}).Find(&records).Error; err != nil {
		return false, err
	}
	for _, r := range records {
		if Verify(candidate, r.Secret) {
			return true, nil
		}
	}
	return false, nil
}

// AppendTx records a replaced hash inside the caller's transaction, so the history
// insert commits together with the password overwrite.
func (k *HistoryKeeper) AppendTx(tx *gorm.DB, uid types.ID, priorHash string) error {
	record := PasswordHistory{
		ID: common.NextId(k.idWorker), UserID: uid, Secret: priorHash, CreateTime: time.Now().Round(time.Millisecond),
	}
	return tx.Create(&record).Error
}
