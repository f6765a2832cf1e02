package command

import (
	"time"

	"github.com/trackside/derby-scoreboard-backend/internal/model"
)

// RegisterAll wires every operator action to the series. Duplicate actions
// are a startup error surfaced by the registry.
func RegisterAll(reg *Registry, series *model.Series) error {
	c := commands{series: series}

	boutKey := []Param{required("boutId", TypeUUID)}
	periodKey := params(boutKey, required("periodId", TypeInt))
	jamKey := params(periodKey, required("jamId", TypeInt))
	teamKey := params(jamKey, required("team", TypeString))

	all := []Command{
		{Action: "getSeries", Handler: c.getSeries},
		{Action: "addBout", Handler: c.addBout},
		{Action: "deleteBout", Params: boutKey, Handler: c.deleteBout},
		{Action: "getBout", Params: boutKey, Handler: c.getBout},

		{Action: "addPeriod", Params: boutKey, Handler: c.addPeriod},
		{Action: "getPeriod", Params: periodKey, Handler: c.getPeriod},
		{Action: "setTimeToDerby",
			Params:  params(periodKey, required("timestamp", TypeInstant), required("duration", TypeDuration)),
			Handler: c.setTimeToDerby},
		{Action: "startTimeToDerby",
			Params:  params(periodKey, required("timestamp", TypeInstant)),
			Handler: c.startTimeToDerby},
		{Action: "startPeriod",
			Params:  params(periodKey, required("timestamp", TypeInstant)),
			Handler: c.startPeriod},
		{Action: "stopPeriod",
			Params:  params(periodKey, required("timestamp", TypeInstant)),
			Handler: c.stopPeriod},

		{Action: "addJam", Params: periodKey, Handler: c.addJam},
		{Action: "deleteJam", Params: jamKey, Handler: c.deleteJam},
		{Action: "getJam", Params: jamKey, Handler: c.getJam},
		{Action: "lineupJam",
			Params:  params(jamKey, required("timestamp", TypeInstant)),
			Handler: c.lineupJam},
		{Action: "startJam",
			Params:  params(jamKey, required("timestamp", TypeInstant)),
			Handler: c.startJam},
		{Action: "stopJam",
			Params:  params(jamKey, required("timestamp", TypeInstant), nullable("stopReason", TypeString)),
			Handler: c.stopJam},
		{Action: "setJamStopReason",
			Params:  params(jamKey, nullable("stopReason", TypeString)),
			Handler: c.setJamStopReason},

		{Action: "setTrip",
			Params: params(teamKey,
				required("tripNum", TypeInt), required("points", TypeInt),
				required("timestamp", TypeInstant), optional("validPass", TypeBool, true)),
			Handler: c.setTrip},
		{Action: "deleteTrip",
			Params:  params(teamKey, required("tripNum", TypeInt)),
			Handler: c.deleteTrip},
		{Action: "setLead",
			Params:  params(teamKey, required("lead", TypeBool)),
			Handler: c.setLead},
		{Action: "setLost",
			Params:  params(teamKey, required("lost", TypeBool)),
			Handler: c.setLost},
		{Action: "setStarPass",
			Params:  params(teamKey, nullable("tripNum", TypeInt)),
			Handler: c.setStarPass},

		{Action: "callTimeout",
			Params:  params(boutKey, required("timestamp", TypeInstant)),
			Handler: c.callTimeout},
		{Action: "assignTimeout",
			Params:  params(boutKey, required("source", TypeString)),
			Handler: c.assignTimeout},
		{Action: "convertToOfficialReview", Params: boutKey, Handler: c.convertToOfficialReview},
		{Action: "convertToTimeout", Params: boutKey, Handler: c.convertToTimeout},
		{Action: "resolveOfficialReview",
			Params:  params(boutKey, required("retained", TypeBool), optional("notes", TypeString, "")),
			Handler: c.resolveOfficialReview},
		{Action: "endTimeout",
			Params:  params(boutKey, required("timestamp", TypeInstant)),
			Handler: c.endTimeout},

		{Action: "startIntermission",
			Params:  params(boutKey, required("timestamp", TypeInstant)),
			Handler: c.startIntermission},
		{Action: "stopIntermission",
			Params:  params(boutKey, required("timestamp", TypeInstant)),
			Handler: c.stopIntermission},
	}
	for _, cmd := range all {
		if err := reg.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

type commands struct {
	series *model.Series
}

func (c *commands) bout(args Args) (*model.Bout, error) {
	return c.series.Bout(args.UUID("boutId"))
}

func (c *commands) period(args Args) (*model.Period, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	return b.Period(args.Int("periodId"))
}

func (c *commands) jam(args Args) (*model.Jam, error) {
	p, err := c.period(args)
	if err != nil {
		return nil, err
	}
	return p.Jam(args.Int("jamId"))
}

func (c *commands) teamJam(args Args) (*model.TeamJam, error) {
	j, err := c.jam(args)
	if err != nil {
		return nil, err
	}
	side, err := model.ParseTeamSide(args.String("team"))
	if err != nil {
		return nil, err
	}
	return j.Team(side), nil
}

func (c *commands) stopReason(args Args) (*model.StopReason, error) {
	if args.IsNull("stopReason") {
		return nil, nil
	}
	reason, err := model.ParseStopReason(args.String("stopReason"))
	if err != nil {
		return nil, err
	}
	return &reason, nil
}

func (c *commands) getSeries(args Args) (any, error) {
	return c.series.Encode(), nil
}

func (c *commands) addBout(args Args) (any, error) {
	c.series.AddBout()
	return nil, nil
}

func (c *commands) deleteBout(args Args) (any, error) {
	return nil, c.series.DeleteBout(args.UUID("boutId"))
}

func (c *commands) getBout(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	return b.Encode(time.Now()), nil
}

func (c *commands) addPeriod(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	_, err = b.AddPeriod()
	return nil, err
}

func (c *commands) getPeriod(args Args) (any, error) {
	p, err := c.period(args)
	if err != nil {
		return nil, err
	}
	return p.Encode(time.Now()), nil
}

func (c *commands) setTimeToDerby(args Args) (any, error) {
	p, err := c.period(args)
	if err != nil {
		return nil, err
	}
	return nil, p.SetTimeToDerby(args.Time("timestamp"), args.Duration("duration"))
}

func (c *commands) startTimeToDerby(args Args) (any, error) {
	p, err := c.period(args)
	if err != nil {
		return nil, err
	}
	return nil, p.StartTimeToDerby(args.Time("timestamp"))
}

func (c *commands) startPeriod(args Args) (any, error) {
	p, err := c.period(args)
	if err != nil {
		return nil, err
	}
	return nil, p.Start(args.Time("timestamp"))
}

func (c *commands) stopPeriod(args Args) (any, error) {
	p, err := c.period(args)
	if err != nil {
		return nil, err
	}
	return nil, p.Stop(args.Time("timestamp"))
}

func (c *commands) addJam(args Args) (any, error) {
	p, err := c.period(args)
	if err != nil {
		return nil, err
	}
	p.AddJam()
	return nil, nil
}

func (c *commands) deleteJam(args Args) (any, error) {
	p, err := c.period(args)
	if err != nil {
		return nil, err
	}
	return nil, p.DeleteJam(args.Int("jamId"))
}

func (c *commands) getJam(args Args) (any, error) {
	j, err := c.jam(args)
	if err != nil {
		return nil, err
	}
	return j.Encode(), nil
}

func (c *commands) lineupJam(args Args) (any, error) {
	j, err := c.jam(args)
	if err != nil {
		return nil, err
	}
	return nil, j.Lineup(args.Time("timestamp"))
}

func (c *commands) startJam(args Args) (any, error) {
	j, err := c.jam(args)
	if err != nil {
		return nil, err
	}
	return nil, j.Start(args.Time("timestamp"))
}

func (c *commands) stopJam(args Args) (any, error) {
	j, err := c.jam(args)
	if err != nil {
		return nil, err
	}
	reason, err := c.stopReason(args)
	if err != nil {
		return nil, err
	}
	return nil, j.Stop(args.Time("timestamp"), reason)
}

func (c *commands) setJamStopReason(args Args) (any, error) {
	j, err := c.jam(args)
	if err != nil {
		return nil, err
	}
	reason, err := c.stopReason(args)
	if err != nil {
		return nil, err
	}
	return nil, j.SetStopReason(reason)
}

func (c *commands) setTrip(args Args) (any, error) {
	tj, err := c.teamJam(args)
	if err != nil {
		return nil, err
	}
	return nil, tj.ApplyTrip(
		args.Int("tripNum"), args.Int("points"), args.Time("timestamp"), args.Bool("validPass"))
}

func (c *commands) deleteTrip(args Args) (any, error) {
	tj, err := c.teamJam(args)
	if err != nil {
		return nil, err
	}
	return nil, tj.DeleteTrip(args.Int("tripNum"))
}

func (c *commands) setLead(args Args) (any, error) {
	tj, err := c.teamJam(args)
	if err != nil {
		return nil, err
	}
	return nil, tj.SetLead(args.Bool("lead"))
}

func (c *commands) setLost(args Args) (any, error) {
	tj, err := c.teamJam(args)
	if err != nil {
		return nil, err
	}
	tj.SetLost(args.Bool("lost"))
	return nil, nil
}

func (c *commands) setStarPass(args Args) (any, error) {
	tj, err := c.teamJam(args)
	if err != nil {
		return nil, err
	}
	var trip *int
	if !args.IsNull("tripNum") {
		n := args.Int("tripNum")
		trip = &n
	}
	return nil, tj.SetStarPass(trip)
}

func (c *commands) callTimeout(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	return nil, b.Stoppages().Call(args.Time("timestamp"))
}

func (c *commands) assignTimeout(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	source, err := model.ParseCaller(args.String("source"))
	if err != nil {
		return nil, err
	}
	return nil, b.Stoppages().Assign(source)
}

func (c *commands) convertToOfficialReview(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	return nil, b.Stoppages().ConvertToOfficialReview()
}

func (c *commands) convertToTimeout(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	return nil, b.Stoppages().ConvertToTimeout()
}

func (c *commands) resolveOfficialReview(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	return nil, b.Stoppages().Resolve(args.Bool("retained"), args.String("notes"))
}

func (c *commands) endTimeout(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	return nil, b.Stoppages().End(args.Time("timestamp"))
}

func (c *commands) startIntermission(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	return nil, b.StartIntermission(args.Time("timestamp"))
}

func (c *commands) stopIntermission(args Args) (any, error) {
	b, err := c.bout(args)
	if err != nil {
		return nil, err
	}
	return nil, b.StopIntermission(args.Time("timestamp"))
}
