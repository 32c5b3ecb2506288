package ptp

// A Field is an optional derived value attached to a record.
type Field struct {
	Value float64
	Set   bool
}

// Some returns a field that holds v.
func Some(v float64) Field {
	return Field{Value: v, Set: true}
}

// Get returns the value and whether it is set.
func (f Field) Get() (float64, bool) {
	return f.Value, f.Set
}

// Clear unsets the field.
func (f *Field) Clear() {
	*f = Field{}
}

// A Record holds the outcome of one delay request-response exchange. All
// timestamps and times are in nanoseconds.
type Record struct {
	Idx uint64

	T1 float64
	T2 float64
	T3 float64
	T4 float64

	// D is the true master-to-slave delay of the Sync message.
	D float64

	DEst float64
	XEst float64

	// Ground truth, set when the exchange was simulated.
	X       Field
	Asym    Field
	XEstErr Field

	// Fields derived by the frequency estimator.
	YEst  Field
	RTCY  Field
	Drift Field
	XLoop Field
}

// A Dataset is a time-ordered sequence of records.
type Dataset []*Record

// A Source produces a dataset, either by simulating or by loading it.
type Source interface {
	Run() error
	Data() Dataset
}

// RecordRow is the flat form of a Record used for persistence.
type RecordRow struct {
	Idx uint64

	T1   float64
	T2   float64
	T3   float64
	T4   float64
	D    float64
	DEst float64
	XEst float64

	X          float64
	HasX       bool
	Asym       float64
	HasAsym    bool
	XEstErr    float64
	HasXEstErr bool
	YEst       float64
	HasYEst    bool
	RTCY       float64
	HasRTCY    bool
	Drift      float64
	HasDrift   bool
	XLoop      float64
	HasXLoop   bool
}

// Row flattens the record.
func (r *Record) Row() RecordRow {
	return RecordRow{
		Idx:        r.Idx,
		T1:         r.T1,
		T2:         r.T2,
		T3:         r.T3,
		T4:         r.T4,
		D:          r.D,
		DEst:       r.DEst,
		XEst:       r.XEst,
		X:          r.X.Value,
		HasX:       r.X.Set,
		Asym:       r.Asym.Value,
		HasAsym:    r.Asym.Set,
		XEstErr:    r.XEstErr.Value,
		HasXEstErr: r.XEstErr.Set,
		YEst:       r.YEst.Value,
		HasYEst:    r.YEst.Set,
		RTCY:       r.RTCY.Value,
		HasRTCY:    r.RTCY.Set,
		Drift:      r.Drift.Value,
		HasDrift:   r.Drift.Set,
		XLoop:      r.XLoop.Value,
		HasXLoop:   r.XLoop.Set,
	}
}

// Record rebuilds the record from its flat form.
func (row RecordRow) Record() *Record {
	field := func(v float64, set bool) Field {
		if !set {
			return Field{}
		}

		return Some(v)
	}

	return &Record{
		Idx:     row.Idx,
		T1:      row.T1,
		T2:      row.T2,
		T3:      row.T3,
		T4:      row.T4,
		D:       row.D,
		DEst:    row.DEst,
		XEst:    row.XEst,
		X:       field(row.X, row.HasX),
		Asym:    field(row.Asym, row.HasAsym),
		XEstErr: field(row.XEstErr, row.HasXEstErr),
		YEst:    field(row.YEst, row.HasYEst),
		RTCY:    field(row.RTCY, row.HasRTCY),
		Drift:   field(row.Drift, row.HasDrift),
		XLoop:   field(row.XLoop, row.HasXLoop),
	}
}
