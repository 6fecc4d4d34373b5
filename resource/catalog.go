package resource

// rows wraps a select so that each row comes back as one JSON text column
func rows(inner string) string {
	return "SELECT row_to_json(r)::text FROM (" + inner + ") r"
}

// strippedRows is rows with null members removed
func strippedRows(inner string) string {
	return "SELECT json_strip_nulls(row_to_json(r))::text FROM (" + inner + ") r"
}

// lookupTable builds the query of an id/description lookup table
func lookupTable(table, columns, order string) string {
	return rows("SELECT " + columns + " FROM iris." + table + " ORDER BY " + order)
}

// naturalOrder sorts names like "D10" after "D9"
const naturalOrder = `regexp_replace(name, '[0-9]', '', 'g'), ` +
	`(regexp_replace(name, '[^0-9]', '', 'g') || '0')::INTEGER`

const utcStamp = `'YYYY-mm-dd"T"HH24:MI:SSZ'`

// Catalog returns every resource in fetch order. System attributes come
// first and roads are loaded before road nodes.
func Catalog() []*Resource {
	return []*Resource{
		Simple("system_attribute_pub", AnyPayload("system_attribute"),
			`SELECT jsonb_object_agg(name, value)::text FROM iris.system_attribute `+
				`WHERE name LIKE 'dms\_%' OR name LIKE 'map\_%'`),
		GraphEdge(AnyPayload("road")),
		Simple("api/alarm", ExceptPayloads("alarm", "pin", "trigger_time"),
			rows(`SELECT name, description, controller, state FROM iris.alarm ORDER BY description`)),
		Simple("beacon_state", Never(), lookupTable("beacon_state", "id, description", "id")),
		Simple("api/beacon", AnyPayload("beacon"),
			rows(`SELECT b.name, location, controller, message, notes, state FROM iris.beacon b `+
				`LEFT JOIN geo_loc_view gl ON b.geo_loc = gl.name ORDER BY name`)),
		Simple("api/lane_marking", AnyPayload("lane_marking"),
			rows(`SELECT m.name, location, controller, notes, deployed FROM iris.lane_marking m `+
				`LEFT JOIN geo_loc_view gl ON m.geo_loc = gl.name ORDER BY name`)),
		Simple("api/cabinet_style", AnyPayload("cabinet_style"),
			lookupTable("cabinet_style", "name", "name")),
		Simple("comm_protocol", Never(), lookupTable("comm_protocol", "id, description", "description")),
		Simple("api/comm_config", AnyPayload("comm_config"),
			lookupTable("comm_config", "name, description", "description")),
		Simple("api/comm_link", AnyPayload("comm_link"),
			rows(`SELECT name, description, uri, comm_config, poll_enabled, connected `+
				`FROM iris.comm_link ORDER BY `+naturalOrder)),
		Simple("condition", Never(), lookupTable("condition", "id, description", "description")),
		Simple("direction", Never(), lookupTable("direction", "id, direction, dir", "id")),
		Simple("api/road", AnyPayload("road"),
			lookupTable("road", "name, abbrev, r_class, direction", "name")),
		Simple("road_modifier", Never(), lookupTable("road_modifier", "id, modifier, mod AS md", "id")),
		Simple("gate_arm_interlock", Never(), lookupTable("gate_arm_interlock", "id, description", "id")),
		Simple("gate_arm_state", Never(), lookupTable("gate_arm_state", "id, description", "id")),
		Simple("lane_use_indication", Never(), lookupTable("lane_use_indication", "id, description", "id")),
		Simple("lcs_lock", Never(), lookupTable("lcs_lock", "id, description", "id")),
		Simple("resource_type", Never(),
			`SELECT to_json(r.name)::text FROM (SELECT name FROM iris.resource_type ORDER BY name) r`),
		Simple("api/controller", AnyPayload("controller"),
			rows(`SELECT c.name, location, comm_link, drop_id, cabinet_style, condition, `+
				`notes, setup, fail_time FROM iris.controller c `+
				`LEFT JOIN geo_loc_view gl ON c.geo_loc = gl.name `+
				`ORDER BY COALESCE(regexp_replace(comm_link, '[0-9]', '', 'g'), ''), `+
				`(regexp_replace(comm_link, '[^0-9]', '', 'g') || '0')::INTEGER, drop_id`)),
		Simple("api/weather_sensor", ExceptPayloads("weather_sensor", "pin", "settings", "sample"),
			rows(`SELECT ws.name, site_id, alt_id, location, controller, notes `+
				`FROM iris.weather_sensor ws LEFT JOIN geo_loc_view gl ON ws.geo_loc = gl.name ORDER BY name`)),
		Simple("rwis", AnyPayload("weather_sensor"),
			rows(`SELECT ws.name, location, lat, lon, settings, sample, sample_time `+
				`FROM iris.weather_sensor ws LEFT JOIN geo_loc_view gl ON ws.geo_loc = gl.name ORDER BY name`)),
		Simple("api/modem", AnyPayload("modem"), lookupTable("modem", "name, enabled", "name")),
		Simple("api/permission", AnyPayload("permission"),
			lookupTable("permission", "id, role, resource_n, hashtag, access_n", "role, resource_n, id")),
		Simple("api/role", AnyPayload("role"), lookupTable("role", "name, enabled", "name")),
		Simple("api/user", AnyPayload("i_user"), lookupTable("i_user", "name, full_name, role, enabled", "name")),
		Simple("api/camera", ExceptPayloads("camera", "video_loss"),
			rows(`SELECT c.name, location, controller, notes, cam_num, publish FROM iris.camera c `+
				`LEFT JOIN geo_loc_view gl ON c.geo_loc = gl.name ORDER BY cam_num, c.name`)),
		Simple("camera_pub", ExceptPayloads("camera", "video_loss"),
			rows(`SELECT name, publish, streamable, roadway, road_dir, cross_street, location, lat, lon, `+
				`ARRAY(SELECT view_num FROM iris.encoder_stream WHERE encoder_type = c.encoder_type `+
				`AND view_num IS NOT NULL ORDER BY view_num) AS views FROM camera_view c ORDER BY name`)),
		Simple("api/gate_arm", AnyPayload("gate_arm"),
			rows(`SELECT g.name, location, g.controller, g.notes, g.arm_state FROM iris.gate_arm g `+
				`LEFT JOIN iris.gate_arm_array ga ON g.ga_array = ga.name `+
				`LEFT JOIN geo_loc_view gl ON ga.geo_loc = gl.name ORDER BY name`)),
		Simple("api/gate_arm_array", AnyPayload("gate_arm_array"),
			rows(`SELECT ga.name, location, notes, arm_state, interlock FROM iris.gate_arm_array ga `+
				`LEFT JOIN geo_loc_view gl ON ga.geo_loc = gl.name ORDER BY ga.name`)),
		Simple("api/gps", ExceptPayloads("gps", "latest_poll", "latest_sample", "lat", "lon"),
			lookupTable("gps", "name, controller, notes", "name")),
		Simple("api/lcs_array", AnyPayload("lcs_array"), lookupTable("lcs_array", "name, notes, lcs_lock", "name")),
		Simple("api/lcs_indication", AnyPayload("lcs_indication"),
			lookupTable("lcs_indication", "name, controller, lcs, indication", "name")),
		Simple("api/ramp_meter", AnyPayload("ramp_meter"),
			rows(`SELECT m.name, location, controller, notes FROM iris.ramp_meter m `+
				`LEFT JOIN geo_loc_view gl ON m.geo_loc = gl.name ORDER BY m.name`)),
		Simple("api/tag_reader", AnyPayload("tag_reader"),
			rows(`SELECT t.name, location, controller, notes FROM iris.tag_reader t `+
				`LEFT JOIN geo_loc_view gl ON t.geo_loc = gl.name ORDER BY t.name`)),
		Simple("api/video_monitor", ExceptPayloads("video_monitor", "camera"),
			lookupTable("video_monitor", "name, mon_num, controller, notes", "mon_num, name")),
		Simple("api/flow_stream", ExceptPayloads("flow_stream", "status"),
			lookupTable("flow_stream", "name, controller", "name")),
		Simple("api/dms", ExceptPayloads("dms", "msg_user", "msg_sched", "expire_time"),
			strippedRows(`SELECT d.name, location, msg_current, `+
				`NULLIF(char_length(status->>'faults') > 0, false) AS has_faults, `+
				`NULLIF(notes, '') AS notes, hashtags, controller FROM iris.dms d `+
				`LEFT JOIN geo_loc_view gl ON d.geo_loc = gl.name `+
				`LEFT JOIN (SELECT dms, string_agg(hashtag, ' ' ORDER BY hashtag) AS hashtags `+
				`FROM iris.dms_hashtag GROUP BY dms) h ON d.name = h.dms ORDER BY d.name`)),
		Simple("dms_pub", ExceptPayloads("dms", "msg_user", "msg_sched", "msg_current", "expire_time", "status"),
			rows(`SELECT name, sign_config, sign_detail, roadway, road_dir, cross_street, location, lat, lon `+
				`FROM dms_view ORDER BY name`)),
		Simple("dms_message", OnlyPayloads("dms", "msg_current"),
			rows(`SELECT name, msg_current, `+
				`replace(substring(msg_owner FROM 'IRIS; ([^;]*).*'), '+', ', ') AS sources, `+
				`failed, duration, expire_time FROM dms_message_view WHERE condition = 'Active' ORDER BY name`)),
		Font(AnyOnEitherChannel("font", "glyph"),
			rows(`SELECT f_number, name, height, width, char_spacing, line_spacing, `+
				`array(SELECT row_to_json(c) FROM (SELECT code_point, width, `+
				`replace(pixels, E'\n', '') AS bitmap FROM iris.glyph WHERE font = ft.name `+
				`ORDER BY code_point) AS c) AS glyphs, version_id FROM iris.font ft ORDER BY name`)),
		Graphic(AnyPayload("graphic"),
			rows(`SELECT g_number AS number, name, height, width, color_scheme, transparent_color, `+
				`replace(pixels, E'\n', '') AS bitmap FROM graphic_view WHERE g_number < 256`)),
		Simple("api/msg_line", AnyPayload("msg_line"),
			strippedRows(`SELECT name, msg_pattern, line, multi, restrict_hashtag FROM iris.msg_line `+
				`ORDER BY msg_pattern, line, rank, restrict_hashtag`)),
		Simple("api/msg_pattern", AnyPayload("msg_pattern"),
			strippedRows(`SELECT name, multi, compose_hashtag FROM iris.msg_pattern ORDER BY name`)),
		Simple("incident", AnyPayload("incident"),
			rows(`SELECT name, event_date, description, road, direction, lane_type, impact, confirmed, `+
				`camera, detail, replaces, lat, lon FROM incident_view WHERE cleared = false`)),
		GraphNode(AnyPayload("r_node")),
		Simple("api/detector", ExceptPayloads("detector", "auto_fail"),
			rows(`SELECT name, label, controller, notes FROM detector_view ORDER BY `+naturalOrder)),
		Simple("detector_pub", ExceptPayloads("detector", "auto_fail"),
			rows(`SELECT name, r_node, cor_id, lane_number, lane_code, field_length FROM detector_view`)),
		Simple("sign_config", AnyPayload("sign_config"),
			rows(`SELECT name, face_width, face_height, border_horiz, border_vert, pitch_horiz, pitch_vert, `+
				`pixel_width, pixel_height, char_width, char_height, monochrome_foreground, `+
				`monochrome_background, color_scheme, default_font, module_width, module_height `+
				`FROM sign_config_view`)),
		Simple("sign_detail", AnyPayload("sign_detail"),
			rows(`SELECT name, dms_type, portable, technology, sign_access, legend, beacon_type, `+
				`hardware_make, hardware_model, software_make, software_model, supported_tags, `+
				`max_pages, max_multi_len, beacon_activation_flag, pixel_service_flag FROM sign_detail_view`)),
		SignMsg("sign_message", AnyPayload("sign_message"),
			rows(`SELECT name, sign_config, incident, multi, msg_owner, flash_beacon, msg_priority, duration `+
				`FROM sign_message_view ORDER BY name`)),
		Simple("TPIMS_static", OnlyPayloads("parking_area", "time_stamp_static"),
			rows(`SELECT site_id AS "siteId", `+
				`to_char(time_stamp_static AT TIME ZONE 'UTC', `+utcStamp+`) AS "timeStamp", `+
				`relevant_highway AS "relevantHighway", reference_post AS "referencePost", `+
				`exit_id AS "exitID", road_dir AS "directionOfTravel", facility_name AS name, `+
				`json_build_object('latitude', lat, 'longitude', lon, 'streetAdr', street_adr, `+
				`'city', city, 'state', state, 'zip', zip, 'timeZone', time_zone) AS location, `+
				`ownership, capacity, string_to_array(amenities, ', ') AS amenities, `+
				`array_remove(ARRAY[camera_image_base_url || camera_1, camera_image_base_url || camera_2, `+
				`camera_image_base_url || camera_3], NULL) AS images, ARRAY[]::text[] AS logos `+
				`FROM parking_area_view`)),
		Simple("TPIMS_dynamic", OnlyPayloads("parking_area", "time_stamp"),
			rows(`SELECT site_id AS "siteId", `+
				`to_char(time_stamp AT TIME ZONE 'UTC', `+utcStamp+`) AS "timeStamp", `+
				`to_char(time_stamp_static AT TIME ZONE 'UTC', `+utcStamp+`) AS "timeStampStatic", `+
				`reported_available AS "reportedAvailable", trend, open, trust_data AS "trustData", `+
				`capacity FROM parking_area_view`)),
		Simple("TPIMS_archive", OnlyPayloads("parking_area", "time_stamp"),
			rows(`SELECT site_id AS "siteId", `+
				`to_char(time_stamp AT TIME ZONE 'UTC', `+utcStamp+`) AS "timeStamp", `+
				`to_char(time_stamp_static AT TIME ZONE 'UTC', `+utcStamp+`) AS "timeStampStatic", `+
				`reported_available AS "reportedAvailable", trend, open, trust_data AS "trustData", `+
				`capacity, last_verification_check AS "lastVerificationCheck", `+
				`verification_check_amplitude AS "verificationCheckAmplitude", `+
				`low_threshold AS "lowThreshold", true_available AS "trueAvailable" `+
				`FROM parking_area_view`)),
	}
}

// DefaultRegistry builds the registry of the full catalog
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(Catalog()...)
	if err != nil {
		panic("invalid resource catalog: " + err.Error())
	}
	return reg
}
