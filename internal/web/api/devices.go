package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"plantcare/auth"
	"plantcare/internal/apperr"
	"plantcare/internal/commandqueue"
	"plantcare/internal/db"
	"plantcare/internal/models"
	"plantcare/internal/web/middleware"
)

// defaultSensors seeds every provisioned device with the full sensor set
var defaultSensors = []struct {
	Type models.SensorType
	Unit string
}{
	{models.SensorSoilMoisture, "%"},
	{models.SensorAirTemperature, "C"},
	{models.SensorWaterLevel, "%"},
}

var defaultActuators = []models.ActuatorType{models.ActuatorPump, models.ActuatorLamp}

func RegisterDeviceRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, dbConn *db.DB, queue *commandqueue.Queue) {
	devices := r.Group("/devices")
	devices.Use(mw.RequireAuth())
	{
		devices.GET("", func(c *gin.Context) {
			list, err := dbConn.GetDevicesByUser(c, userID(c))
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, list)
		})

		devices.POST("", func(c *gin.Context) {
			var req struct {
				Name  string `json:"name" binding:"required"`
				Model string `json:"model"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			device, secret, err := provisionDevice(c, dbConn, userID(c), req.Name, req.Model)
			if err != nil {
				writeError(c, err)
				return
			}
			sensors, _ := dbConn.GetSensorsByDevice(c, device.ID)
			actuators, _ := dbConn.GetActuatorsByDevice(c, device.ID)
			c.JSON(http.StatusCreated, gin.H{
				"device":    device,
				"secret":    secret, // shown once, never stored in plaintext
				"sensors":   sensors,
				"actuators": actuators,
			})
		})

		devices.GET("/:id/readings/latest", func(c *gin.Context) {
			device, ok := ownedDevice(c, dbConn)
			if !ok {
				return
			}
			readings, err := dbConn.GetLatestReadings(c, device.ID)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"readings": readings})
		})

		devices.GET("/:id/profile", func(c *gin.Context) {
			device, ok := ownedDevice(c, dbConn)
			if !ok {
				return
			}
			profile, err := dbConn.GetProfileByDevice(c, device.ID)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, profile)
		})

		devices.PUT("/:id/profile", func(c *gin.Context) {
			upsertProfile(c, dbConn, false)
		})

		devices.PATCH("/:id/profile", func(c *gin.Context) {
			upsertProfile(c, dbConn, true)
		})

		devices.POST("/:id/commands", func(c *gin.Context) {
			device, ok := ownedDevice(c, dbConn)
			if !ok {
				return
			}
			var req struct {
				ActuatorID  uuid.UUID          `json:"actuator_id" binding:"required"`
				Verb        models.CommandVerb `json:"verb" binding:"required"`
				DurationSec *int               `json:"duration_sec"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !req.Verb.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown command verb"})
				return
			}

			cmd, err := queue.Enqueue(c, device.ID, req.ActuatorID, req.Verb, req.DurationSec)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusCreated, cmd)
		})

		devices.GET("/:id/logs", func(c *gin.Context) {
			device, ok := ownedDevice(c, dbConn)
			if !ok {
				return
			}
			from, to := timeRange(c)
			logs, err := dbConn.GetExecutionLogs(c, device.ID, from, to)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"logs": logs})
		})
	}
}

// provisionDevice creates a device owned by the user with a one-time secret
// and the default sensor/actuator set
func provisionDevice(c *gin.Context, dbConn *db.DB, ownerID uuid.UUID, name, model string) (*models.Device, string, error) {
	secret, hash, err := auth.GenerateDeviceSecret()
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	device := &models.Device{
		ID:         uuid.New(),
		UserID:     &ownerID,
		Name:       name,
		Model:      model,
		Status:     models.DeviceClaimed,
		SecretHash: hash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := dbConn.InsertDevice(c, device); err != nil {
		return nil, "", err
	}

	for _, s := range defaultSensors {
		sensor := &models.Sensor{ID: uuid.New(), DeviceID: device.ID, Type: s.Type, Unit: s.Unit, CreatedAt: now}
		if err := dbConn.InsertSensor(c, sensor); err != nil {
			return nil, "", err
		}
	}
	for _, t := range defaultActuators {
		actuator := &models.Actuator{ID: uuid.New(), DeviceID: device.ID, Type: t, State: models.StateUnknown, CreatedAt: now}
		if err := dbConn.InsertActuator(c, actuator); err != nil {
			return nil, "", err
		}
	}
	return device, secret, nil
}

// profilePatch uses pointers so absent JSON fields are distinguishable from
// explicit nulls; both leave the threshold untouched on PATCH.
type profilePatch struct {
	SoilMoistureMin     *float64 `json:"soil_moisture_min"`
	SoilMoistureMax     *float64 `json:"soil_moisture_max"`
	TempMin             *float64 `json:"temp_min"`
	TempMax             *float64 `json:"temp_max"`
	MinWaterLevel       *float64 `json:"min_water_level"`
	WateringDurationSec *int     `json:"watering_duration_sec"`
	WateringCooldownMin *int     `json:"watering_cooldown_min"`
	LampOnMinute        *int     `json:"lamp_on_minute"`
	LampOffMinute       *int     `json:"lamp_off_minute"`
}

func upsertProfile(c *gin.Context, dbConn *db.DB, partial bool) {
	device, ok := ownedDevice(c, dbConn)
	if !ok {
		return
	}
	var patch profilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateProfile(&patch); err != nil {
		writeError(c, err)
		return
	}

	profile := &models.AutomationProfile{ID: uuid.New(), DeviceID: device.ID}
	if partial {
		existing, err := dbConn.GetProfileByDevice(c, device.ID)
		if err == nil {
			profile = existing
		}
	}
	applyPatch(profile, &patch, partial)

	if err := dbConn.UpsertProfile(c, profile); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func validateProfile(p *profilePatch) error {
	if p.LampOnMinute != nil && (*p.LampOnMinute < 0 || *p.LampOnMinute >= 24*60) {
		return apperr.Validationf("lamp_on_minute out of range")
	}
	if p.LampOffMinute != nil && (*p.LampOffMinute < 0 || *p.LampOffMinute >= 24*60) {
		return apperr.Validationf("lamp_off_minute out of range")
	}
	if p.WateringDurationSec != nil && *p.WateringDurationSec <= 0 {
		return apperr.Validationf("watering_duration_sec must be positive")
	}
	if p.WateringCooldownMin != nil && *p.WateringCooldownMin < 0 {
		return apperr.Validationf("watering_cooldown_min must not be negative")
	}
	return nil
}

func applyPatch(profile *models.AutomationProfile, patch *profilePatch, partial bool) {
	if !partial || patch.SoilMoistureMin != nil {
		profile.SoilMoistureMin = patch.SoilMoistureMin
	}
	if !partial || patch.SoilMoistureMax != nil {
		profile.SoilMoistureMax = patch.SoilMoistureMax
	}
	if !partial || patch.TempMin != nil {
		profile.TempMin = patch.TempMin
	}
	if !partial || patch.TempMax != nil {
		profile.TempMax = patch.TempMax
	}
	if !partial || patch.MinWaterLevel != nil {
		profile.MinWaterLevel = patch.MinWaterLevel
	}
	if !partial || patch.WateringDurationSec != nil {
		profile.WateringDurationSec = patch.WateringDurationSec
	}
	if !partial || patch.WateringCooldownMin != nil {
		profile.WateringCooldownMin = patch.WateringCooldownMin
	}
	if !partial || patch.LampOnMinute != nil {
		profile.LampOnMinute = patch.LampOnMinute
	}
	if !partial || patch.LampOffMinute != nil {
		profile.LampOffMinute = patch.LampOffMinute
	}
}

// ownedDevice loads the :id device and enforces ownership. Foreign devices
// read as not-found.
func ownedDevice(c *gin.Context, dbConn *db.DB) (*models.Device, bool) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return nil, false
	}
	device, err := dbConn.GetDeviceByID(c, id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	uid := userID(c)
	if device.UserID == nil || *device.UserID != uid {
		writeError(c, apperr.NotFoundf("device %s", id))
		return nil, false
	}
	return device, true
}

func timeRange(c *gin.Context) (time.Time, time.Time) {
	from := time.Now().UTC().Add(-24 * time.Hour)
	to := time.Now().UTC()
	if v := c.Query("from"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			from = parsed
		}
	}
	if v := c.Query("to"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			to = parsed
		}
	}
	return from, to
}
