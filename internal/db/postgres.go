package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodcart/internal/interfaces"
	"foodcart/internal/metrics"
	"foodcart/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrOrderNotFound заказа с таким ID нет
var ErrOrderNotFound = errors.New("заказ не найден")

var (
	_ interfaces.Database   = (*PostgresDB)(nil)
	_ interfaces.PlaceStore = (*PostgresDB)(nil)
)

type PostgresDB struct {
	Conn   *sql.DB
	logger *zap.Logger
}

func NewPostgresDB(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (p *PostgresDB) Close() error {
	return p.Conn.Close()
}

// observe записывает длительность и исход операции
func observe(operation string, start time.Time, err error) {
	metrics.DBOperationTime.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBOperations.WithLabelValues(operation, status).Inc()
}

func (p *PostgresDB) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		p.logger.Warn("Ошибка закрытия rows", zap.Error(err))
	}
}

const orderColumns = `id, address, firstname, lastname, phonenumber, comment, status, payment,
        restaurant_id, created_at, processed_at, finished_at`

// CreateOrder сохраняет заказ с позициями в одной транзакции и заполняет order.ID
func (p *PostgresDB) CreateOrder(ctx context.Context, order *models.Order) (err error) {
	defer func(start time.Time) { observe("create_order", start, err) }(time.Now())

	tx, err := p.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = tx.QueryRowContext(ctx, `
        INSERT INTO orders(address, firstname, lastname, phonenumber, comment, status, payment, restaurant_id, created_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`,
		order.Address, order.Firstname, order.Lastname, order.Phonenumber, order.Comment,
		order.Status, order.Payment, nullInt64(order.RestaurantID), order.CreatedAt).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("сохранение заказа: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO order_items(order_id, product_id, quantity, price)
            VALUES($1,$2,$3,$4)`,
			order.ID, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("сохранение позиции %d заказа %d: %w", item.ProductID, order.ID, err)
		}
	}

	return tx.Commit()
}

func (p *PostgresDB) GetOrder(ctx context.Context, id int64) (order *models.Order, err error) {
	defer func(start time.Time) { observe("get_order", start, err) }(time.Now())

	row := p.Conn.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err = scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("заказ %d: %w", id, ErrOrderNotFound)
	} else if err != nil {
		return nil, err
	}

	items, err := p.loadItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]
	return order, nil
}

// ListActiveOrders заказы в работе: сначала новые, затем собираемые и доставляемые,
// внутри статуса самые свежие первыми
func (p *PostgresDB) ListActiveOrders(ctx context.Context) (orders []models.Order, err error) {
	defer func(start time.Time) { observe("list_active_orders", start, err) }(time.Now())

	statuses := make([]string, len(models.ActiveStatuses))
	for i, s := range models.ActiveStatuses {
		statuses[i] = string(s)
	}

	rows, err := p.Conn.QueryContext(ctx, `
        SELECT `+orderColumns+`
        FROM orders
        WHERE status = ANY($1::text[])
        ORDER BY array_position($1::text[], status::text), created_at DESC, id DESC`,
		pq.Array(statuses))
	if err != nil {
		return nil, err
	}
	defer p.closeRows(rows)

	var ids []int64
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при переборе заказов: %w", err)
	}

	items, err := p.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (p *PostgresDB) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	items := make(map[int64][]models.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return items, nil
	}

	rows, err := p.Conn.QueryContext(ctx, `
        SELECT order_id, product_id, quantity, price
        FROM order_items WHERE order_id = ANY($1)
        ORDER BY id`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer p.closeRows(rows)

	for rows.Next() {
		var orderID int64
		var item models.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при переборе позиций заказов: %w", err)
	}
	return items, nil
}

func (p *PostgresDB) ListRestaurants(ctx context.Context) (restaurants []models.Restaurant, err error) {
	defer func(start time.Time) { observe("list_restaurants", start, err) }(time.Now())

	rows, err := p.Conn.QueryContext(ctx, `
        SELECT id, name, address, contact_phone FROM restaurants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer p.closeRows(rows)

	for rows.Next() {
		var r models.Restaurant
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.ContactPhone); err != nil {
			return nil, err
		}
		restaurants = append(restaurants, r)
	}
	return restaurants, rows.Err()
}

const productQuery = `
        SELECT p.id, p.name, p.price, p.image, p.special_status, p.description, c.id, c.name
        FROM products p
        LEFT JOIN product_categories c ON c.id = p.category_id`

func (p *PostgresDB) ListProducts(ctx context.Context) (products []models.Product, err error) {
	defer func(start time.Time) { observe("list_products", start, err) }(time.Now())
	return p.queryProducts(ctx, productQuery+` ORDER BY p.id`)
}

// ListAvailableProducts товары, доступные хотя бы в одном ресторане
func (p *PostgresDB) ListAvailableProducts(ctx context.Context) (products []models.Product, err error) {
	defer func(start time.Time) { observe("list_available_products", start, err) }(time.Now())
	return p.queryProducts(ctx, productQuery+`
        WHERE EXISTS (
            SELECT 1 FROM restaurant_menu_items m
            WHERE m.product_id = p.id AND m.availability
        )
        ORDER BY p.id`)
}

// GetProducts товары по ID; отсутствующих ID в результате нет
func (p *PostgresDB) GetProducts(ctx context.Context, ids []int64) (result map[int64]models.Product, err error) {
	defer func(start time.Time) { observe("get_products", start, err) }(time.Now())

	result = make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	products, err := p.queryProducts(ctx, productQuery+` WHERE p.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, product := range products {
		result[product.ID] = product
	}
	return result, nil
}

func (p *PostgresDB) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := p.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer p.closeRows(rows)

	var products []models.Product
	for rows.Next() {
		var product models.Product
		var categoryID sql.NullInt64
		var categoryName sql.NullString
		if err := rows.Scan(&product.ID, &product.Name, &product.Price, &product.Image,
			&product.SpecialStatus, &product.Description, &categoryID, &categoryName); err != nil {
			return nil, err
		}
		if categoryID.Valid {
			product.Category = &models.Category{ID: categoryID.Int64, Name: categoryName.String}
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (p *PostgresDB) ListMenuItems(ctx context.Context) (items []models.MenuItem, err error) {
	defer func(start time.Time) { observe("list_menu_items", start, err) }(time.Now())

	rows, err := p.Conn.QueryContext(ctx, `
        SELECT restaurant_id, product_id, availability
        FROM restaurant_menu_items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer p.closeRows(rows)

	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.RestaurantID, &item.ProductID, &item.Availability); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetPlace запись кэша координат; nil, nil если адрес ещё не запрашивался
func (p *PostgresDB) GetPlace(ctx context.Context, address string) (*models.Place, error) {
	place := &models.Place{Address: address}
	var lat, lon sql.NullFloat64
	err := p.Conn.QueryRowContext(ctx, `
        SELECT lat, lon, updated_at, failed FROM places WHERE address = $1`, address).
		Scan(&lat, &lon, &place.UpdatedAt, &place.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.PlaceStoreOperations.WithLabelValues("postgres", "get", "miss").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.PlaceStoreOperations.WithLabelValues("postgres", "get", "error").Inc()
		return nil, fmt.Errorf("чтение координат %q: %w", address, err)
	}

	if !place.Failed && lat.Valid && lon.Valid {
		place.Coordinates = &models.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}
	metrics.PlaceStoreOperations.WithLabelValues("postgres", "get", "hit").Inc()
	return place, nil
}

// SavePlace вставляет или перезаписывает запись по адресу
func (p *PostgresDB) SavePlace(ctx context.Context, place *models.Place) error {
	var lat, lon sql.NullFloat64
	if place.Coordinates != nil {
		lat = sql.NullFloat64{Float64: place.Coordinates.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: place.Coordinates.Lon, Valid: true}
	}

	_, err := p.Conn.ExecContext(ctx, `
        INSERT INTO places(address, lat, lon, updated_at, failed)
        VALUES($1,$2,$3,$4,$5)
        ON CONFLICT (address) DO UPDATE
        SET lat=EXCLUDED.lat, lon=EXCLUDED.lon, updated_at=EXCLUDED.updated_at, failed=EXCLUDED.failed`,
		place.Address, lat, lon, place.UpdatedAt, place.Failed)
	if err != nil {
		metrics.PlaceStoreOperations.WithLabelValues("postgres", "save", "error").Inc()
		return fmt.Errorf("сохранение координат %q: %w", place.Address, err)
	}
	metrics.PlaceStoreOperations.WithLabelValues("postgres", "save", "success").Inc()
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*models.Order, error) {
	var order models.Order
	var restaurantID sql.NullInt64
	var processedAt, finishedAt sql.NullTime
	err := s.Scan(&order.ID, &order.Address, &order.Firstname, &order.Lastname, &order.Phonenumber,
		&order.Comment, &order.Status, &order.Payment, &restaurantID, &order.CreatedAt,
		&processedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if restaurantID.Valid {
		order.RestaurantID = &restaurantID.Int64
	}
	if processedAt.Valid {
		order.ProcessedAt = &processedAt.Time
	}
	if finishedAt.Valid {
		order.FinishedAt = &finishedAt.Time
	}
	return &order, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
