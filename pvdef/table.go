package pvdef

import "github.com/quentinmit/go-pcas/native"

// Table converts records into the registration table. This is the only
// place the list terminators the native side expects are added.
func Table(records []Record) []native.PVDef {
	out := make([]native.PVDef, len(records))
	for i, r := range records {
		enums := make([]*string, 0, len(r.Enums)+1)
		for j := range r.Enums {
			enums = append(enums, &r.Enums[j])
		}
		enums = append(enums, nil)

		states := make([]int32, 0, len(r.States)+1)
		for _, s := range r.States {
			states = append(states, int32(s))
		}
		states = append(states, native.StateTerminator)

		out[i] = native.PVDef{
			Name:   r.Name,
			Type:   r.Type,
			Count:  int32(r.Count),
			Scan:   r.Scan,
			Enums:  enums,
			States: states,
			Prec:   int32(r.Prec),
			Unit:   r.Unit,
			Hilim:  r.Hilim,
			Lolim:  r.Lolim,
			High:   r.High,
			Low:    r.Low,
			Hihi:   r.Hihi,
			Lolo:   r.Lolo,
			Mdel:   r.Mdel,
			Adel:   r.Adel,
			Soft:   r.Soft,
			Value:  append([]byte(nil), r.Value...),
		}
	}
	return out
}
