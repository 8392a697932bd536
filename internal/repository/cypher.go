package repository

const stationConstraintCypher = `
CREATE CONSTRAINT station_id IF NOT EXISTS
FOR (s:Station) REQUIRE s.stationId IS UNIQUE
`

const clearGraphCypher = `
MATCH (s:Station)
DETACH DELETE s
`

const listStationsCypher = `
MATCH (s:Station)
RETURN s.stationId AS stationId,
       s.name AS name,
       s.lat AS lat,
       s.lon AS lon
ORDER BY coalesce(s.seq, 9223372036854775807), s.stationId
`

const listEdgesCypher = `
MATCH (a:Station)-[r:CONNECTS]->(b:Station)
RETURN a.stationId AS fromStation,
       b.stationId AS toStation,
       r.edgeType AS edgeType,
       r.weight AS weight,
       coalesce(r.routeIds, []) AS routeIds,
       coalesce(r.directionId, 0) AS directionId
ORDER BY r.seq
`

const edgesByRouteCypher = `
MATCH (a:Station)-[r:CONNECTS]->(b:Station)
WHERE $routeId IN r.routeIds
RETURN a.stationId AS fromStation,
       b.stationId AS toStation,
       r.edgeType AS edgeType,
       r.weight AS weight,
       coalesce(r.routeIds, []) AS routeIds,
       coalesce(r.directionId, 0) AS directionId
ORDER BY r.seq
`

const listRoutesCypher = `
MATCH (:Station)-[r:CONNECTS]->(:Station)
UNWIND coalesce(r.routeIds, []) AS routeId
RETURN DISTINCT routeId
ORDER BY routeId
`

const upsertStationsCypher = `
UNWIND $stations AS st
MERGE (s:Station {stationId: st.stationId})
SET s.name = st.name,
    s.lat = st.lat,
    s.lon = st.lon,
    s.seq = st.seq
RETURN count(s) AS written
`

const upsertEdgesCypher = `
UNWIND $edges AS e
MATCH (a:Station {stationId: e.from})
MATCH (b:Station {stationId: e.to})
MERGE (a)-[r:CONNECTS {seq: e.seq}]->(b)
SET r.edgeType = e.edgeType,
    r.weight = e.weight,
    r.routeIds = e.routeIds,
    r.directionId = e.directionId
RETURN count(r) AS written
`
