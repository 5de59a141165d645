package repository

import (
	"errors"
	"time"

	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SellerSnapshot 卖家财务快照（累计结算口径）
type SellerSnapshot struct {
	SellerID         uint         `json:"seller_id"`
	GrossAmount      models.Money `json:"gross_amount"`      // 累计入账毛额
	CommissionAmount models.Money `json:"commission_amount"` // 累计佣金
	NetAmount        models.Money `json:"net_amount"`        // 累计净额（含反冲）
	PendingPayout    models.Money `json:"pending_payout"`    // 未完成打款余额
}

// SettlementRepository 结算数据访问接口（批次、分录、打款单）
type SettlementRepository interface {
	CreateRun(run *models.SettlementRun) error
	GetRunByID(id uint) (*models.SettlementRun, error)
	GetRunByIDForUpdate(tx *gorm.DB, id uint) (*models.SettlementRun, error)
	UpdateRun(run *models.SettlementRun) error
	ListRuns(filter SettlementRunListFilter) ([]models.SettlementRun, int64, error)

	CreateEntry(entry *models.SettlementEntry) error
	SettledItemIDs(orderItemIDs []uint) (map[uint]bool, error)
	GetEarnEntryByItemID(orderItemID uint) (*models.SettlementEntry, error)
	GetReversalEntryByItemID(orderItemID uint) (*models.SettlementEntry, error)
	ListEntries(filter SettlementEntryListFilter) ([]models.SettlementEntry, int64, error)

	CreatePayout(payout *models.Payout) error
	GetPayoutByID(id uint) (*models.Payout, error)
	GetPayoutByNo(payoutNo string) (*models.Payout, error)
	UpdatePayout(payout *models.Payout) error
	ListPayouts(filter PayoutListFilter) ([]models.Payout, int64, error)
	ListStuckPayouts(olderThan time.Time) ([]models.Payout, error)

	SellerSnapshot(sellerID uint) (*SellerSnapshot, error)

	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormSettlementRepository
}

// GormSettlementRepository GORM 结算仓储实现
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewSettlementRepository 创建结算仓储
func NewSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSettlementRepository) WithTx(tx *gorm.DB) *GormSettlementRepository {
	if tx == nil {
		return r
	}
	return &GormSettlementRepository{db: tx}
}

// Transaction 执行事务
func (r *GormSettlementRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// CreateRun 创建结算批次
func (r *GormSettlementRepository) CreateRun(run *models.SettlementRun) error {
	return r.db.Create(run).Error
}

// GetRunByID 按ID获取结算批次
func (r *GormSettlementRepository) GetRunByID(id uint) (*models.SettlementRun, error) {
	if id == 0 {
		return nil, nil
	}
	var run models.SettlementRun
	if err := r.db.First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// GetRunByIDForUpdate 事务内按ID加锁获取结算批次
func (r *GormSettlementRepository) GetRunByIDForUpdate(tx *gorm.DB, id uint) (*models.SettlementRun, error) {
	if tx == nil {
		tx = r.db
	}
	var run models.SettlementRun
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// UpdateRun 更新结算批次
func (r *GormSettlementRepository) UpdateRun(run *models.SettlementRun) error {
	return r.db.Save(run).Error
}

// ListRuns 分页查询结算批次
func (r *GormSettlementRepository) ListRuns(filter SettlementRunListFilter) ([]models.SettlementRun, int64, error) {
	query := r.db.Model(&models.SettlementRun{})
	if filter.RunType != "" {
		query = query.Where("run_type = ?", filter.RunType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var runs []models.SettlementRun
	if err := query.Order("id desc").Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// CreateEntry 创建结算分录
func (r *GormSettlementRepository) CreateEntry(entry *models.SettlementEntry) error {
	return r.db.Create(entry).Error
}

// SettledItemIDs 返回给定订单项中已有入账分录的子集
// 反冲后的订单项同样视为已结算：反冲代表退款，不代表可以重新入账。
func (r *GormSettlementRepository) SettledItemIDs(orderItemIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if len(orderItemIDs) == 0 {
		return result, nil
	}
	var ids []uint
	err := r.db.Model(&models.SettlementEntry{}).
		Where("order_item_id IN ?", orderItemIDs).
		Where("direction = ?", constants.EntryDirectionEarn).
		Pluck("order_item_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// GetEarnEntryByItemID 查询订单项的入账分录
func (r *GormSettlementRepository) GetEarnEntryByItemID(orderItemID uint) (*models.SettlementEntry, error) {
	if orderItemID == 0 {
		return nil, nil
	}
	var entry models.SettlementEntry
	err := r.db.
		Where("order_item_id = ? AND direction = ?", orderItemID, constants.EntryDirectionEarn).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetReversalEntryByItemID 查询订单项的反冲分录, 退款重试据此判断是否已反冲
func (r *GormSettlementRepository) GetReversalEntryByItemID(orderItemID uint) (*models.SettlementEntry, error) {
	if orderItemID == 0 {
		return nil, nil
	}
	var entry models.SettlementEntry
	err := r.db.
		Where("order_item_id = ? AND direction = ?", orderItemID, constants.EntryDirectionReversal).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListEntries 分页查询结算分录
func (r *GormSettlementRepository) ListEntries(filter SettlementEntryListFilter) ([]models.SettlementEntry, int64, error) {
	query := r.db.Model(&models.SettlementEntry{})
	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.RunID != 0 {
		query = query.Where("run_id = ?", filter.RunID)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var entries []models.SettlementEntry
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// CreatePayout 创建打款单
func (r *GormSettlementRepository) CreatePayout(payout *models.Payout) error {
	return r.db.Create(payout).Error
}

// GetPayoutByID 按ID获取打款单
func (r *GormSettlementRepository) GetPayoutByID(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetPayoutByNo 按单号获取打款单
func (r *GormSettlementRepository) GetPayoutByNo(payoutNo string) (*models.Payout, error) {
	if payoutNo == "" {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.Where("payout_no = ?", payoutNo).First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// UpdatePayout 更新打款单
func (r *GormSettlementRepository) UpdatePayout(payout *models.Payout) error {
	return r.db.Save(payout).Error
}

// ListPayouts 分页查询打款单
func (r *GormSettlementRepository) ListPayouts(filter PayoutListFilter) ([]models.Payout, int64, error) {
	query := r.db.Model(&models.Payout{})
	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.RunID != 0 {
		query = query.Where("run_id = ?", filter.RunID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var payouts []models.Payout
	if err := query.Order("id desc").Find(&payouts).Error; err != nil {
		return nil, 0, err
	}
	return payouts, total, nil
}

// ListStuckPayouts 查询滞留在 processing 状态的打款单
func (r *GormSettlementRepository) ListStuckPayouts(olderThan time.Time) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.
		Where("status = ?", constants.PayoutStatusProcessing).
		Where("updated_at < ?", olderThan).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// SellerSnapshot 聚合卖家的累计结算与未完成打款余额
func (r *GormSettlementRepository) SellerSnapshot(sellerID uint) (*SellerSnapshot, error) {
	if sellerID == 0 {
		return nil, nil
	}
	type entrySums struct {
		Gross      models.Money
		Commission models.Money
		Net        models.Money
	}
	var sums entrySums
	err := r.db.Model(&models.SettlementEntry{}).
		Select("COALESCE(SUM(gross_amount),0) as gross, COALESCE(SUM(commission_amount),0) as commission, COALESCE(SUM(net_amount),0) as net").
		Where("seller_id = ?", sellerID).
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}

	var pending models.Money
	err = r.db.Model(&models.Payout{}).
		Select("COALESCE(SUM(amount),0)").
		Where("seller_id = ?", sellerID).
		Where("status IN ?", []string{constants.PayoutStatusScheduled, constants.PayoutStatusProcessing}).
		Scan(&pending).Error
	if err != nil {
		return nil, err
	}

	return &SellerSnapshot{
		SellerID:         sellerID,
		GrossAmount:      sums.Gross,
		CommissionAmount: sums.Commission,
		NetAmount:        sums.Net,
		PendingPayout:    pending,
	}, nil
}
