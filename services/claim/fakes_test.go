package claim

import (
	"fmt"
	"sync"
	"time"

	deviceRepo "tigermeter/database/repository/device"
	"tigermeter/models"

	"go.mongodb.org/mongo-driver/bson"
)

// In-memory repository fakes. They return copies the way a Mongo decode
// would, so tests observe persisted state rather than shared pointers.

type memDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*models.Device
}

func newMemDeviceRepo() *memDeviceRepo {
	return &memDeviceRepo{devices: make(map[string]*models.Device)}
}

func (r *memDeviceRepo) Create(device *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *device
	r.devices[device.ID] = &cp
	return nil
}

func (r *memDeviceRepo) GetByID(id string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *memDeviceRepo) GetByMac(mac string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.Mac == mac {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memDeviceRepo) List(filter deviceRepo.DeviceFilter) ([]models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Device
	for _, d := range r.devices {
		if filter.UserID != "" && d.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *memDeviceRepo) ListByUser(userID string) ([]models.Device, error) {
	return r.List(deviceRepo.DeviceFilter{UserID: userID})
}

func (r *memDeviceRepo) Update(device *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[device.ID]; !ok {
		return fmt.Errorf("device %s not found", device.ID)
	}
	cp := *device
	r.devices[device.ID] = &cp
	return nil
}

func (r *memDeviceRepo) UpdateFields(id string, set bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("device %s not found", id)
	}
	for k, v := range set {
		switch k {
		case "status":
			d.Status = v.(string)
		case "userId":
			d.UserID = v.(string)
		case "displayInstructionJson":
			d.DisplayInstructionJSON = v.(string)
		case "displayHash":
			d.DisplayHash = v.(string)
		case "displayVersion":
			d.DisplayVersion = v.(int)
		case "pendingFactoryReset":
			d.PendingFactoryReset = v.(bool)
		case "lastSeen":
			t := v.(time.Time)
			d.LastSeen = &t
		case "battery":
			n := v.(int)
			d.Battery = &n
		case "rssi":
			n := v.(int)
			d.Rssi = &n
		case "ip":
			d.IP = v.(string)
		case "firmwareVersion":
			d.FirmwareVersion = v.(string)
		case "autoUpdate":
			d.AutoUpdate = v.(bool)
		case "demoMode":
			d.DemoMode = v.(bool)
		case "currentSecretHash":
			d.CurrentSecretHash = v.(string)
		case "previousSecretHash":
			d.PreviousSecretHash = v.(string)
		default:
			return fmt.Errorf("unexpected field %q in update", k)
		}
	}
	return nil
}

func (r *memDeviceRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
	return nil
}

func (r *memDeviceRepo) RotateSecret(id, newHash string, newExpiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("device %s not found", id)
	}
	d.PreviousSecretHash = d.CurrentSecretHash
	d.PreviousSecretExpiresAt = d.CurrentSecretExpiresAt
	d.CurrentSecretHash = newHash
	d.CurrentSecretExpiresAt = &newExpiresAt
	return nil
}

func (r *memDeviceRepo) ConsumeFactoryReset(id string, seenAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok || !d.PendingFactoryReset {
		return false, nil
	}
	d.PendingFactoryReset = false
	d.LastSeen = &seenAt
	return true, nil
}

type memClaimRepo struct {
	mu     sync.Mutex
	claims map[string]*models.DeviceClaim
}

func newMemClaimRepo() *memClaimRepo {
	return &memClaimRepo{claims: make(map[string]*models.DeviceClaim)}
}

func (r *memClaimRepo) Create(claim *models.DeviceClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.claims[claim.Code]; exists {
		return fmt.Errorf("duplicate code %s", claim.Code)
	}
	claim.CreatedAt = time.Now()
	cp := *claim
	r.claims[claim.Code] = &cp
	return nil
}

func (r *memClaimRepo) GetByCode(code string) (*models.DeviceClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memClaimRepo) MarkClaimed(code, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[code]
	if !ok || c.Status != models.ClaimStatusPending {
		return false, nil
	}
	c.Status = models.ClaimStatusClaimed
	c.UserID = userID
	return true, nil
}

func (r *memClaimRepo) ConsumeSecretIssued(code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[code]
	if !ok || c.Status != models.ClaimStatusClaimed || c.SecretIssued {
		return false, nil
	}
	c.SecretIssued = true
	return true, nil
}

func (r *memClaimRepo) DeleteByDevice(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, c := range r.claims {
		if c.DeviceID == deviceID {
			delete(r.claims, code)
		}
	}
	return nil
}

func (r *memClaimRepo) DeleteExpired(before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for code, c := range r.claims {
		if c.ExpiresAt.Before(before) {
			delete(r.claims, code)
			n++
		}
	}
	return n, nil
}

type memPendingRepo struct {
	mu      sync.Mutex
	pending map[string]*models.PendingDevice
	nextID  int
}

func newMemPendingRepo() *memPendingRepo {
	return &memPendingRepo{pending: make(map[string]*models.PendingDevice)}
}

func (r *memPendingRepo) Upsert(mac, firmwareVersion, ip string, seenAt time.Time) (*models.PendingDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pending {
		if p.Mac == mac && p.Status == models.PendingStatusPending {
			p.AttemptCount++
			p.LastSeen = seenAt
			p.FirmwareVersion = firmwareVersion
			p.IP = ip
			cp := *p
			return &cp, nil
		}
	}
	r.nextID++
	p := &models.PendingDevice{
		ID:              fmt.Sprintf("pending-%d", r.nextID),
		Mac:             mac,
		FirmwareVersion: firmwareVersion,
		IP:              ip,
		FirstSeen:       seenAt,
		LastSeen:        seenAt,
		AttemptCount:    1,
		Status:          models.PendingStatusPending,
	}
	r.pending[p.ID] = p
	cp := *p
	return &cp, nil
}

func (r *memPendingRepo) GetByID(id string) (*models.PendingDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPendingRepo) ListPending() ([]models.PendingDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PendingDevice
	for _, p := range r.pending {
		if p.Status == models.PendingStatusPending {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPendingRepo) SetStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[id]
	if !ok {
		return fmt.Errorf("pending device %s not found", id)
	}
	p.Status = status
	return nil
}

func (r *memPendingRepo) DeleteProcessed(before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, p := range r.pending {
		if p.Status != models.PendingStatusPending && p.LastSeen.Before(before) {
			delete(r.pending, id)
			n++
		}
	}
	return n, nil
}

// fakeIssuer stands in for the device secret manager.
type fakeIssuer struct {
	calls     int
	plaintext string
	expiresAt time.Time
}

func (f *fakeIssuer) IssueSecret(deviceID string) (string, time.Time, error) {
	f.calls++
	return f.plaintext, f.expiresAt, nil
}
