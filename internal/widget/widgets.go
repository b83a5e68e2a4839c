package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zulandar/teller/internal/models"
	"gorm.io/gorm"
)

// Sentinel errors callers branch on.
var (
	ErrWidgetNotFound = errors.New("widget: not found")
	ErrNotDynamic     = errors.New("widget: not a dynamic widget")
)

// Create persists a widget for the user. When queryCfg is non-nil the
// widget is dynamic: the descriptor is validated, executed once, and the
// resulting snapshot embedded in the stored config under "data".
func (e *Engine) Create(ctx context.Context, userID, title, widgetType string, config map[string]any, queryCfg *QueryConfig) (*models.Widget, error) {
	switch widgetType {
	case models.WidgetChart, models.WidgetSimulation, models.WidgetGoal:
	default:
		return nil, fmt.Errorf("widget: unknown widget type %q", widgetType)
	}
	if config == nil {
		config = map[string]any{}
	}

	w := models.Widget{
		ID:         models.NewID("wgt"),
		UserID:     userID,
		Title:      title,
		WidgetType: widgetType,
		DataMode:   models.DataModeStatic,
	}

	if queryCfg != nil {
		if err := ValidateQueryConfig(*queryCfg); err != nil {
			return nil, err
		}
		result, err := e.Execute(ctx, *queryCfg, userID)
		if err != nil {
			return nil, err
		}
		config["data"] = result

		raw, err := json.Marshal(queryCfg)
		if err != nil {
			return nil, fmt.Errorf("widget: encode query config: %w", err)
		}
		qc := string(raw)
		w.DataMode = models.DataModeDynamic
		w.QueryConfig = &qc
		now := e.now()
		w.LastRefreshed = &now
	}

	encoded, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("widget: encode config: %w", err)
	}
	w.Config = string(encoded)

	if err := e.db.WithContext(ctx).Create(&w).Error; err != nil {
		return nil, fmt.Errorf("widget: create: %w", err)
	}
	return &w, nil
}

// List returns the user's widgets, newest first.
func (e *Engine) List(ctx context.Context, userID string) ([]models.Widget, error) {
	var widgets []models.Widget
	if err := e.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&widgets).Error; err != nil {
		return nil, fmt.Errorf("widget: list: %w", err)
	}
	return widgets, nil
}

// Get returns one of the user's widgets by ID.
func (e *Engine) Get(ctx context.Context, userID, widgetID string) (*models.Widget, error) {
	var w models.Widget
	err := e.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", widgetID, userID).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrWidgetNotFound, widgetID)
	}
	if err != nil {
		return nil, fmt.Errorf("widget: get: %w", err)
	}
	return &w, nil
}

// Update applies title and/or config changes to one of the user's widgets.
// Empty title and nil config are left untouched.
func (e *Engine) Update(ctx context.Context, userID, widgetID, title string, config map[string]any) (*models.Widget, error) {
	w, err := e.Get(ctx, userID, widgetID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if title != "" {
		updates["title"] = title
	}
	if config != nil {
		encoded, err := json.Marshal(config)
		if err != nil {
			return nil, fmt.Errorf("widget: encode config: %w", err)
		}
		updates["config"] = string(encoded)
	}
	if len(updates) == 0 {
		return w, nil
	}
	if err := e.db.WithContext(ctx).Model(w).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("widget: update: %w", err)
	}
	return e.Get(ctx, userID, widgetID)
}

// Delete removes one of the user's widgets.
func (e *Engine) Delete(ctx context.Context, userID, widgetID string) error {
	res := e.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", widgetID, userID).
		Delete(&models.Widget{})
	if res.Error != nil {
		return fmt.Errorf("widget: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", ErrWidgetNotFound, widgetID)
	}
	return nil
}

// Refresh re-runs a dynamic widget's stored descriptor against live data
// and overwrites only the cached snapshot and last_refreshed. The
// descriptor itself and the rest of the config are never touched, so a
// refresh over unchanged data writes an identical snapshot.
func (e *Engine) Refresh(ctx context.Context, userID, widgetID string) (*models.Widget, error) {
	w, err := e.Get(ctx, userID, widgetID)
	if err != nil {
		return nil, err
	}
	if w.DataMode != models.DataModeDynamic || w.QueryConfig == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotDynamic, widgetID)
	}

	var cfg QueryConfig
	if err := json.Unmarshal([]byte(*w.QueryConfig), &cfg); err != nil {
		return nil, fmt.Errorf("widget: decode query config: %w", err)
	}
	result, err := e.Execute(ctx, cfg, w.UserID)
	if err != nil {
		return nil, err
	}

	var config map[string]any
	if err := json.Unmarshal([]byte(w.Config), &config); err != nil {
		config = map[string]any{}
	}
	config["data"] = result
	encoded, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("widget: encode config: %w", err)
	}

	now := e.now()
	if err := e.db.WithContext(ctx).Model(w).Updates(map[string]any{
		"config":         string(encoded),
		"last_refreshed": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("widget: refresh: %w", err)
	}
	w.Config = string(encoded)
	w.LastRefreshed = &now
	return w, nil
}

// RefreshAllDynamic refreshes every dynamic widget. Individual failures
// are reported through onErr and do not stop the sweep. Returns the count
// of widgets refreshed.
func (e *Engine) RefreshAllDynamic(ctx context.Context, onErr func(widgetID string, err error)) (int, error) {
	var widgets []models.Widget
	if err := e.db.WithContext(ctx).
		Where("data_mode = ?", models.DataModeDynamic).
		Find(&widgets).Error; err != nil {
		return 0, fmt.Errorf("widget: refresh sweep: %w", err)
	}
	refreshed := 0
	for _, w := range widgets {
		if _, err := e.Refresh(ctx, w.UserID, w.ID); err != nil {
			if onErr != nil {
				onErr(w.ID, err)
			}
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
